// Package httpapi exposes the library over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"libraryCirculation/internal/accounts"
	"libraryCirculation/internal/auth"
	"libraryCirculation/internal/catalog"
	"libraryCirculation/internal/circulation"
	"libraryCirculation/internal/config"
	"libraryCirculation/repository"
)

// Deps are the services the API serves.
type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Engine   *circulation.Engine
	Catalog  *catalog.Service
	Accounts *accounts.Service
	Logger   *slog.Logger
	Now      func() time.Time
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(requestID(), requestLogger(d.Logger), recovery(d.Logger))
	r.MaxMultipartMemory = 8 << 20

	r.GET("/healthz", h.health)

	api := r.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)
		api.POST("/auth/reset-password", h.resetPassword)
	}

	authed := api.Group("", auth.Middleware(d.Config.Auth.JWTSecret))
	{
		authed.GET("/auth/me", h.me)
		authed.GET("/books", h.listBooks)
		authed.GET("/stats", h.stats)
		authed.POST("/borrow", h.borrow)
		authed.POST("/return", h.returnBook)
	}

	admin := authed.Group("", auth.AdminOnly())
	{
		admin.POST("/books", h.createBook)
		admin.POST("/books/bulk", h.bulkCreate)
		admin.GET("/books/:code/history", h.history)
		admin.GET("/users", h.listUsers)
		admin.POST("/users", h.createUser)
		admin.GET("/reports/unreturned", h.unreturned)
		admin.POST("/import/books", h.importBooks)
		admin.GET("/export/books", h.exportBooks)
	}
	return r
}

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.ErrorContext(ctx, "health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartHTTP serves handler on addr and returns a graceful shutdown function.
func StartHTTP(addr string, handler http.Handler, logger *slog.Logger) (func(context.Context) error, error) {
	if addr == "" {
		addr = ":3000"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "err", err)
		}
	}()
	return srv.Shutdown, nil
}
