package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := NewHealthHandler()
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions}
	videos := VideoHandler{Service: deps.Videos, Limiter: deps.AcquireLimiter}
	requests := RequestsHandler{History: deps.Requests}
	admin := AdminHandler{Reaper: deps.Reaper, Token: deps.AdminToken, BatchLimit: deps.ReapBatchLimit}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.Logout)

	mux.HandleFunc("POST /api/v1/videos/probe", requireUser(deps.Sessions, videos.Probe))
	mux.HandleFunc("POST /api/v1/videos", requireUser(deps.Sessions, videos.Acquire))
	mux.HandleFunc("GET /api/v1/videos", requireUser(deps.Sessions, videos.List))
	mux.HandleFunc("GET /api/v1/videos/{id}/link", requireUser(deps.Sessions, videos.Link))
	mux.HandleFunc("DELETE /api/v1/videos/{id}", requireUser(deps.Sessions, videos.Delete))

	mux.HandleFunc("GET /api/v1/requests", requireUser(deps.Sessions, requests.List))

	mux.HandleFunc("POST /api/v1/admin/reap", admin.Reap)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Sessions       SessionManager
	Videos         VideoService
	Requests       RequestHistory
	Reaper         ExpiredReaper
	AcquireLimiter RateLimiter
	AdminToken     string
	ReapBatchLimit int
}
