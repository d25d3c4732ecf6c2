package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safasajha-be/config"
	"safasajha-be/controllers"
	"safasajha-be/gcs"
	"safasajha-be/middlewares"
	"safasajha-be/realtime"
	"safasajha-be/routes"
	"safasajha-be/services"
	"safasajha-be/store"
	authUtils "safasajha-be/utils"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	config.InitLogging(cfg)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	mongoClient, db, err := config.ConnectDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer config.DisconnectDB(mongoClient)

	redisClient, err := config.ConnectRedis(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	issuer, err := authUtils.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.WithError(err).Fatal("invalid token settings")
	}

	reports := store.NewReportStore(db.Collection(store.ReportsCollection))
	users := store.NewUserStore(db.Collection(store.UsersCollection))
	notifications := store.NewNotificationStore(db.Collection(store.NotificationsCollection))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := realtime.NewHub()
	go hub.Run(ctx)
	realtime.SetAllowedOrigins(cfg.CORSOrigins)

	var pusher services.Pusher = hub
	if redisClient != nil {
		relay := realtime.NewRedisRelay(redisClient, cfg.RealtimeChannel, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Error("realtime relay stopped")
			}
		}()
		pusher = relay
	}

	dispatcher := services.NewDispatcher(notifications, pusher, services.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
	})
	if cfg.MailEnabled() {
		dispatcher.WithMailer(config.NewMailer(cfg), users)
	}
	dispatcher.Start(ctx)

	lifecycle := services.NewLifecycle(reports, users, dispatcher)
	accounts := services.NewAccounts(users, reports, issuer)
	analytics := services.NewAnalytics(reports, users)
	inbox := services.NewInbox(notifications, users, dispatcher)

	scheduler := services.NewScheduler(notifications, reports, dispatcher, dispatcher, 0)
	if err := scheduler.Start(cfg.DeliverySpec, cfg.ReminderSpec); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}

	var images controllers.ImageUploader
	if cfg.GCSBucket != "" {
		uploader, err := gcs.New(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Error("image uploads disabled")
		} else {
			defer uploader.Close()
			images = uploader
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-Match"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middlewares.AuthMiddleware(users, issuer)
	limiter := middlewares.ReportRateLimiter(redisClient, cfg.RedisQueueForReportLimit, cfg.ReportDailyLimit)
	cookie := controllers.CookieOptions{Domain: cfg.Domain, Secure: cfg.IsProduction(), MaxAge: issuer.TTL()}
	if cfg.IsProduction() {
		cookie.Domain = ""
	}

	wasteController := controllers.NewWasteController(lifecycle, images, cfg.RequestTimeout)
	routes.AuthRoutes(r, controllers.NewAuthController(accounts, cookie, cfg.RequestTimeout), auth)
	routes.UserRoutes(r, controllers.NewUserController(accounts, lifecycle, cfg.RequestTimeout), auth)
	routes.WasteRoutes(r, wasteController, auth, limiter)
	routes.AdminRoutes(r, controllers.NewAdminController(analytics, accounts, lifecycle, inbox, cfg.RequestTimeout), wasteController, auth)
	routes.NotificationRoutes(r, controllers.NewNotificationController(inbox, cfg.RequestTimeout), auth)
	routes.SocketRoutes(r, controllers.NewSocketController(hub), auth)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	scheduler.Stop()
	dispatcher.Stop()
	stop()
	log.Info("Server exited")
}
