package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
)

// Config wires the router to its dependencies.
type Config struct {
	DB      *sql.DB
	Signer  *auth.Signer
	Service *circulation.Service

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
	Burst     int
}

// NewRouter creates the HTTP handler with all endpoints and middleware registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, Signer: cfg.Signer}
	usersHandler := &UsersHandler{DB: cfg.DB}
	plansHandler := &PlansHandler{DB: cfg.DB}
	patronsHandler := &PatronsHandler{DB: cfg.DB, Service: cfg.Service}
	booksHandler := &BooksHandler{DB: cfg.DB}
	itemsHandler := &ItemsHandler{DB: cfg.DB}
	borrowingsHandler := &BorrowingsHandler{Service: cfg.Service}
	dashboardHandler := &DashboardHandler{Reader: cfg.Service.Reader}
	healthHandler := &HealthHandler{DB: cfg.DB}

	authMW := AuthMiddleware(cfg.Signer, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireLibrarian := RequireRole(model.RoleLibrarian)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	librarian := func(h http.HandlerFunc) http.Handler { return authMW(requireLibrarian(h)) }

	// Public.
	mux.HandleFunc("GET /healthz", healthHandler.Live)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Session.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Membership plans: read (all roles), write (admin).
	mux.Handle("GET /api/plans", authed(plansHandler.List))
	mux.Handle("POST /api/plans", admin(plansHandler.Create))
	mux.Handle("PUT /api/plans/{id}", admin(plansHandler.Update))
	mux.Handle("DELETE /api/plans/{id}", admin(plansHandler.Delete))

	// Patrons: read (all roles), write (librarian+).
	mux.Handle("GET /api/patrons", authed(patronsHandler.List))
	mux.Handle("POST /api/patrons", librarian(patronsHandler.Create))
	mux.Handle("GET /api/patrons/{id}", authed(patronsHandler.Get))
	mux.Handle("PUT /api/patrons/{id}", librarian(patronsHandler.Update))
	mux.Handle("PATCH /api/patrons/{id}/status", librarian(patronsHandler.ChangeStatus))
	mux.Handle("DELETE /api/patrons/{id}", librarian(patronsHandler.Delete))
	mux.Handle("GET /api/patrons/{id}/borrowings", authed(patronsHandler.Borrowings))

	// Books: read (all roles), write (librarian+).
	mux.Handle("GET /api/books", authed(booksHandler.List))
	mux.Handle("POST /api/books", librarian(booksHandler.Create))
	mux.Handle("GET /api/books/{id}", authed(booksHandler.Get))
	mux.Handle("PUT /api/books/{id}", librarian(booksHandler.Update))
	mux.Handle("DELETE /api/books/{id}", librarian(booksHandler.Delete))
	mux.Handle("GET /api/books/{id}/cover", authed(booksHandler.GetCover))
	mux.Handle("PUT /api/books/{id}/cover", librarian(booksHandler.UploadCover))

	// Items: read (all roles), write (librarian+).
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", librarian(itemsHandler.Create))
	mux.Handle("GET /api/items/lookup", authed(itemsHandler.Lookup))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", librarian(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", librarian(itemsHandler.Delete))
	mux.Handle("PATCH /api/items/{id}/status", librarian(itemsHandler.ChangeStatus))
	mux.Handle("GET /api/items/{id}/history", authed(itemsHandler.History))

	// Circulation (all roles).
	mux.Handle("POST /api/borrowings/issue", authed(borrowingsHandler.Issue))
	mux.Handle("POST /api/borrowings/{id}/renew", authed(borrowingsHandler.Renew))
	mux.Handle("POST /api/borrowings/{id}/return", authed(borrowingsHandler.Return))
	mux.Handle("GET /api/borrowings/search", authed(borrowingsHandler.Search))
	mux.Handle("GET /api/borrowings/overdue", authed(borrowingsHandler.Overdue))
	mux.Handle("GET /api/borrowings/{id}", authed(borrowingsHandler.Get))

	// Dashboard (all roles).
	mux.Handle("GET /api/dashboard", authed(dashboardHandler.Overview))
	mux.Handle("GET /api/dashboard/stats", authed(dashboardHandler.Stats))
	mux.Handle("GET /api/dashboard/trends", authed(dashboardHandler.Trends))
	mux.Handle("GET /api/dashboard/popular-books", authed(dashboardHandler.PopularBooks))
	mux.Handle("GET /api/dashboard/patron-activity", authed(dashboardHandler.PatronActivity))
	mux.Handle("GET /api/dashboard/recent-activity", authed(dashboardHandler.RecentActivity))

	var handler http.Handler = mux
	if cfg.RateLimit > 0 {
		handler = NewRateLimiter(cfg.RateLimit, max(cfg.Burst, 1)).Middleware(handler)
	}
	handler = RecoverMiddleware(handler)
	handler = LoggingMiddleware(handler)
	return RequestIDMiddleware(handler)
}
