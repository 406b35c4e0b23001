package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/api/handler"
	"github.com/brewpoint/pos-edge/internal/api/middleware"
	"github.com/brewpoint/pos-edge/internal/api/ws"
	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
	"github.com/brewpoint/pos-edge/internal/core/service"
)

// Services carries the constructed core services into the router.
type Services struct {
	Session  *service.AuthSession
	Gateway  *service.Gateway
	Fallback *service.FallbackStore
	Recovery *service.Recovery
	Monitor  *service.ConnectivityMonitor
	Dedup    ports.DedupStore
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, rdb *redis.Client, hub *ws.Hub, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("posedge_http"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(svc.Session, svc.Fallback)
	ordersHandler := handler.NewOrdersHandler(svc.Gateway, svc.Fallback)
	notifyHandler := handler.NewNotifyHandler(svc.Gateway, svc.Dedup)
	statusHandler := handler.NewStatusHandler(svc.Session, svc.Fallback, svc.Monitor, svc.Recovery)

	sessionGate := middleware.Session(svc.Session, svc.Fallback)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/session", authHandler.Session)

	// --- Proxied resources (session required) ---
	r := e.Group("", sessionGate)
	r.GET("/orders/pending", ordersHandler.Pending)
	r.GET("/orders/in-progress", ordersHandler.InProgress)
	r.GET("/orders/completed", ordersHandler.Completed)
	r.POST("/orders/:id/complete", ordersHandler.Complete)
	r.GET("/inventory", ordersHandler.Inventory)
	r.GET("/stations", ordersHandler.Stations)
	r.POST("/sms/send", notifyHandler.SendSMS)

	// --- Status feed ---
	e.GET("/status", statusHandler.Status)
	e.GET("/status/stream", hub.Serve)
	e.POST("/status/reconnect", statusHandler.Reconnect)
	r.POST("/state/reset", statusHandler.ResetState, middleware.RBAC(domain.RoleAdmin, domain.RoleSupport))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(rdb, svc.Monitor)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
