// Package milestone holds the driver achievement tracks shown on the
// dashboard and the referral codes that feed the referral track.
package milestone

import "time"

// TrackKind names what a milestone counts.
type TrackKind string

const (
	TrackRides     TrackKind = "rides"
	TrackDistance  TrackKind = "distance_miles"
	TrackReferrals TrackKind = "referrals"
)

// Milestone is one tier on a track.
type Milestone struct {
	Track    TrackKind `json:"track"`
	Name     string    `json:"name"`
	Target   float64   `json:"target"`
	Progress float64   `json:"progress"`
	Achieved bool      `json:"achieved"`
}

// ReferralCode is a driver's shareable code. Uses counts sign-ups that
// carried it.
type ReferralCode struct {
	DriverID  string    `json:"driver_id"`
	Code      string    `json:"code"`
	Uses      int       `json:"uses"`
	CreatedAt time.Time `json:"created_at"`
}
