package http

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"driverportal/internal/gate"
)

// The pages are thin shells; the browser script on each talks to the JSON
// API. What matters server-side is which gate guards each route.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} · Driver Portal</title>
  <link rel="stylesheet" href="/files/assets/portal.css">
</head>
<body>
  <div id="app" data-page="{{.Page}}"></div>
  <script src="/files/assets/{{.Page}}.js"></script>
</body>
</html>
`))

type pageData struct {
	Title string
	Page  string
}

func pageHandler(title, page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = pageTemplate.Execute(w, pageData{Title: title, Page: page})
	}
}

func registerPages(r chi.Router, g *gate.Gate) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	r.Get("/signin", pageHandler("Sign in", "signin"))
	r.Get("/signup", pageHandler("Sign up", "signup"))
	r.Get("/reset-password", pageHandler("Reset password", "reset-password"))

	// The onboarding form needs a session; a completed driver skips it.
	r.Group(func(r chi.Router) {
		r.Use(g.RequireSessionPage)
		r.Use(g.SkipIfProfiled)
		r.Get("/form", pageHandler("Complete your profile", "form"))
	})

	// The dashboard needs both a session and a completed profile.
	r.Group(func(r chi.Router) {
		r.Use(g.RequireSessionPage)
		r.Use(g.RequireProfilePage)
		r.Get("/dashboard", pageHandler("Dashboard", "dashboard"))
	})
}
