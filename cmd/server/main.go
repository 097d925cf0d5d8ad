package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/palakgarg19/Happening/internal/cache"
	"github.com/palakgarg19/Happening/internal/config"
	"github.com/palakgarg19/Happening/internal/database"
	"github.com/palakgarg19/Happening/internal/handler"
	"github.com/palakgarg19/Happening/internal/middleware"
	"github.com/palakgarg19/Happening/internal/payment"
	"github.com/palakgarg19/Happening/internal/queue"
	"github.com/palakgarg19/Happening/internal/repository"
	"github.com/palakgarg19/Happening/internal/router"
	"github.com/palakgarg19/Happening/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	var evCache cache.Cache
	if rdb != nil {
		evCache = cache.NewRedisCache(rdb, "happening")
	}

	eventRepo := repository.NewEventRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	userRepo := repository.NewUserRepo(db)

	gateway := payment.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)

	// With a broker configured, bookings are published to the queue and
	// applied by the worker process. Without one (or with the worker
	// disabled) the service falls back to applying bookings inline.
	var publisher *queue.Publisher
	if cfg.AMQPURL != "" && !cfg.DisableWorker {
		publisher = queue.NewPublisher(cfg.AMQPURL)
		log.Printf("[server] queue enabled, bookings go through %s", queue.BookingJobQueue)
	} else {
		log.Printf("[server] queue disabled, bookings apply synchronously")
	}

	bookingSvc := service.NewBookingService(db, eventRepo, bookingRepo, publisher)
	paymentSvc := service.NewPaymentService(db, bookingRepo, paymentRepo, gateway, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.Currency)
	cancelSvc := service.NewCancellationService(db, eventRepo, bookingRepo, paymentRepo, gateway, evCache)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, userRepo),
		Events:   handler.NewEventHandler(eventRepo, cancelSvc, evCache, cfg.EventCacheTTL),
		Bookings: handler.NewBookingHandler(bookingSvc, cancelSvc, bookingRepo, eventRepo),
		Payments: handler.NewPaymentHandler(paymentSvc),
	}, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
