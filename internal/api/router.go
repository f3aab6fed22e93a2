package api

import (
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
)

// NewRouter creates the API router with all endpoints registered. The
// returned handler also serves /metrics when the service has metrics.
func NewRouter(svc *inventory.Service, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: svc.DB, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: svc.DB}
	itemsHandler := &ItemsHandler{Inventory: svc}
	logsHandler := &LogsHandler{Inventory: svc}

	authMW := AuthMiddleware(jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Items: read (all roles), stock movements (all roles), edits (manager+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("POST /api/items/{id}/transfer", authMW(http.HandlerFunc(itemsHandler.Transfer)))
	mux.Handle("POST /api/items/{id}/sale", authMW(http.HandlerFunc(itemsHandler.Sale)))

	// Logs: read (all roles), retroactive edits (manager+).
	mux.Handle("GET /api/logs", authMW(http.HandlerFunc(logsHandler.List)))
	mux.Handle("GET /api/logs/export", authMW(http.HandlerFunc(logsHandler.Export)))
	mux.Handle("PUT /api/logs/{id}", authMW(requireManager(http.HandlerFunc(logsHandler.Update))))
	mux.Handle("DELETE /api/logs/{id}", authMW(requireManager(http.HandlerFunc(logsHandler.Delete))))

	if svc.Metrics != nil {
		mux.Handle("GET /metrics", svc.Metrics.Handler())
	}

	return mux
}
