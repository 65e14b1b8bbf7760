package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dbdint/agency-api/internal/config"
	"github.com/dbdint/agency-api/internal/handler"
	"github.com/dbdint/agency-api/internal/middleware"
	"github.com/dbdint/agency-api/internal/model"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth        *handler.AuthHandler
	Browse      *handler.BrowseHandler
	Quote       *handler.QuoteHandler
	Link        *handler.LinkHandler
	Assignment  *handler.StaffAssignmentHandler
	Payment     *handler.StaffPaymentHandler
	Interpreter *handler.InterpreterHandler
}

// Register wires the whole route table: the public surface (catalog,
// quote form, email links), the auth endpoints, and the role-guarded
// client, interpreter and admin APIs.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.GET("/healthz", handler.Health)

	// Public surface.  Catalog reads sit behind the response cache;
	// the quote form sits behind an IP-keyed rate limit so one visitor
	// cannot flood the enquiry inbox.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	pub := e.Group("/v1")
	pub.GET("/languages", h.Browse.Languages, cache)
	pub.GET("/service-types", h.Browse.ServiceTypes, cache)
	pub.POST("/quote-requests", h.Quote.PublicRequest, limit)

	// Accept/decline links from assignment offer emails.  Tokens are
	// self-authenticating; these render HTML, not JSON.
	e.GET("/links/assignments/accept/:token", h.Link.Accept)
	e.GET("/links/assignments/decline/:token", h.Link.Decline)

	// Session endpoints.
	auth := e.Group("/v1/auth", limit)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	jwt := middleware.JWTAuth(cfg.JWTSecret)

	me := e.Group("/v1", jwt)
	me.GET("/me", h.Auth.Me)

	// Client API: quote requests and the quotes issued against them.
	client := e.Group("/v1/client", jwt, middleware.RequireRole(model.RoleClient))
	client.POST("/quote-requests", h.Quote.CreateRequest)
	client.GET("/quote-requests", h.Quote.ListMyRequests)
	client.GET("/quote-requests/:id/quote", h.Quote.GetMyQuote)
	client.POST("/quote-requests/:id/quote/accept", h.Quote.AcceptQuote)
	client.POST("/quote-requests/:id/quote/reject", h.Quote.RejectQuote)

	// Interpreter API: own assignments and the notification feed.
	interp := e.Group("/v1/interpreter", jwt, middleware.RequireRole(model.RoleInterpreter))
	interp.GET("/assignments", h.Interpreter.MyAssignments)
	interp.GET("/notifications", h.Interpreter.Notifications)
	interp.GET("/notifications/unread-count", h.Interpreter.UnreadCount)
	interp.POST("/notifications/:id/read", h.Interpreter.MarkRead)
	interp.POST("/notifications/read-all", h.Interpreter.MarkAllRead)

	// Admin API: assignment lifecycle, payroll, quoting queue.
	admin := e.Group("/v1/admin", jwt, middleware.RequireRole(model.RoleAdmin))

	admin.POST("/assignments", h.Assignment.Create)
	admin.GET("/assignments", h.Assignment.List)
	admin.GET("/assignments/:id", h.Assignment.Get)
	admin.PUT("/assignments/:id", h.Assignment.Update)
	admin.PATCH("/assignments/:id/status", h.Assignment.UpdateStatus)
	admin.POST("/assignments/:id/resend", h.Assignment.Resend)
	admin.GET("/assignments/:id/audit", h.Assignment.AuditTrail)

	admin.GET("/payments", h.Payment.List)
	admin.GET("/expenses", h.Payment.ListExpenses)
	admin.POST("/payments/:id/settle", h.Payment.Settle)
	admin.POST("/payments/:id/fail", h.Payment.Fail)
	admin.POST("/client-payments", h.Payment.RecordClientPayment)

	admin.GET("/quote-requests", h.Quote.ListRequests)
	admin.POST("/quote-requests/:id/quote", h.Quote.IssueQuote)
	admin.GET("/public-quote-requests", h.Quote.ListPublicRequests)
	admin.POST("/public-quote-requests/:id/processed", h.Quote.MarkPublicProcessed)
	admin.POST("/quotes/expire-stale", h.Quote.ExpireStale)
}
