// Package insurance stores the driver's uploaded insurance documents.
//
// Uploads degrade gracefully by contract with the profile service: an upload
// failure never blocks profile creation, the profile simply carries no
// document URL until a later retry.
package insurance

import (
	"context"
	"io"
	"path"
)

// Store persists insurance documents and hands back the public URL the
// profile records.
type Store interface {
	// Upload writes the document and returns its public URL.
	Upload(ctx context.Context, driverID, fileName string, content io.Reader) (string, error)
}

// ObjectPath is the canonical storage path for a driver's document. One
// document per file name; re-uploading the same name replaces it.
func ObjectPath(driverID, fileName string) string {
	return path.Join("insurance", driverID, path.Base(fileName))
}

// PublicURL is the URL under which an uploaded document is served.
func PublicURL(driverID, fileName string) string {
	return "/files/" + ObjectPath(driverID, fileName)
}
