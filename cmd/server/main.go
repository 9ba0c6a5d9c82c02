package main

import (
	"context"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/festivo-app/festivo/internal/admin"
	"github.com/festivo-app/festivo/internal/alerts"
	"github.com/festivo-app/festivo/internal/audit"
	"github.com/festivo-app/festivo/internal/booking"
	"github.com/festivo-app/festivo/internal/calendar"
	"github.com/festivo-app/festivo/internal/config"
	"github.com/festivo-app/festivo/internal/db"
	"github.com/festivo-app/festivo/internal/eligibility"
	"github.com/festivo-app/festivo/internal/escrow"
	mware "github.com/festivo-app/festivo/internal/middleware"
	"github.com/festivo-app/festivo/internal/ratelimit"
	"github.com/festivo-app/festivo/internal/reviews"
	"github.com/festivo-app/festivo/internal/triggers"
	"github.com/festivo-app/festivo/internal/views"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db.Init(cfg.DBSource)
	alerts.Init()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	// Booking transaction service and its collaborators.
	store := booking.NewPGStore(db.Conn)
	limiter := ratelimit.NewRedisChecker(rdb)
	oracle := eligibility.NewPGOracle(db.Conn)
	auditRec := audit.NewPGRecorder(db.Conn)
	blocks := booking.NewPGDateBlocks(db.Conn)
	sink := alerts.NewSink()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asynqClient.Close()
	sched := triggers.NewScheduler(asynqClient)
	coord := escrow.NewCoordinator(escrow.NewPGStore(db.Conn), sched, 0)

	svc := booking.NewService(store, limiter, oracle, coord, blocks, sink, auditRec, sched)
	bookingHandler := booking.NewHandler(svc)

	// View rebuild engine and the background worker that serves its triggers.
	viewStore := views.NewPGViewStore(db.Conn)
	src := views.NewPGSource(db.Conn)
	engine := views.NewEngine(src, viewStore)
	viewHandler := views.NewHandler(engine, viewStore)
	admin.InitViews(engine)

	worker := triggers.NewWorker(cfg.RedisAddr, engine, coord, svc, cfg.StaleThreshold())
	go func() {
		if err := worker.Run(); err != nil {
			log.Fatalf("trigger worker: %v", err)
		}
	}()
	defer worker.Shutdown()

	// Reviews and manual calendar blocks change supplier documents.
	reviews.SetSupplierRebuildHook(func(supplierID string) {
		sched.ActorChanged(context.Background(), "supplier", supplierID)
	})
	calendar.SetSupplierRebuildHook(func(supplierID string) {
		sched.ActorChanged(context.Background(), "supplier", supplierID)
	})

	// Notification inserts and read-marks change the unread count in the view
	// documents, so they trigger a rebuild for the recipient's documents too.
	alerts.SetRebuildHook(func(userID string) {
		ctx := context.Background()
		sched.ActorChanged(ctx, "client", userID)
		if supplierID, err := src.SupplierIDForUser(ctx, userID); err == nil {
			sched.ActorChanged(ctx, "supplier", supplierID)
		}
	})

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "festivo"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public routes
	e.GET("/suppliers/:id/reviews", reviews.GetSupplierReviews)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.POST("/bookings", bookingHandler.Create, mware.RequireRoles("client"))
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/respond", bookingHandler.Respond, mware.RequireRoles("supplier"))
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.PATCH("/bookings/:id/status", bookingHandler.UpdateStatus)
	api.POST("/bookings/:id/payments", bookingHandler.RecordPayment, mware.RequireRoles("client", "admin"))

	api.POST("/bookings/:id/review", reviews.CreateReview, mware.RequireRoles("client"))
	api.GET("/bookings/:id/review", reviews.GetBookingReview)

	api.GET("/views/client/me", viewHandler.GetClientView, mware.RequireRoles("client"))
	api.GET("/views/supplier/me", viewHandler.GetSupplierView, mware.RequireRoles("supplier"))

	api.GET("/notifications", alerts.ListNotifications)
	api.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	api.POST("/calendar/blocks", calendar.BlockDate, mware.RequireRoles("supplier"))
	api.DELETE("/calendar/blocks/:day", calendar.UnblockDate, mware.RequireRoles("supplier"))
	api.GET("/calendar/blocks", calendar.ListBlockedDates, mware.RequireRoles("supplier"))

	// Admin routes
	adm := e.Group("/admin")
	adm.Use(mware.JWTMiddleware)
	adm.Use(mware.AdminGuard)

	adm.GET("/stats", admin.Stats)
	adm.GET("/bookings", admin.ListBookings)
	adm.GET("/audit", admin.ListAuditEntries)
	adm.POST("/views/backfill", admin.RunBackfill)
	adm.GET("/views/stale", admin.ListStaleViews)
	adm.POST("/views/:kind/:id/rebuild", viewHandler.Rebuild)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
