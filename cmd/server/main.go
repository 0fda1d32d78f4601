package main // Entry point package

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/lmittmann/tint"

	"github.com/iliyamo/hotello/internal/assistant"
	"github.com/iliyamo/hotello/internal/auth"
	"github.com/iliyamo/hotello/internal/booking"
	"github.com/iliyamo/hotello/internal/checkout"
	"github.com/iliyamo/hotello/internal/config"
	"github.com/iliyamo/hotello/internal/database"
	"github.com/iliyamo/hotello/internal/handler"
	"github.com/iliyamo/hotello/internal/mailer"
	"github.com/iliyamo/hotello/internal/payment"
	"github.com/iliyamo/hotello/internal/queue"
	"github.com/iliyamo/hotello/internal/ratelimit"
	"github.com/iliyamo/hotello/internal/repository"
	"github.com/iliyamo/hotello/internal/router"
	queue_publisher "github.com/iliyamo/hotello/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable, login cooldowns disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	codes := repository.NewCodeRepo(db)
	rooms := repository.NewRoomRepo(db)
	checkouts := repository.NewCheckoutRepo(db)
	bookings := repository.NewBookingRepo(db)

	var m mailer.Mailer
	if cfg.SMTPHost != "" {
		m = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			FromAddress: cfg.SMTPFrom,
			FromName:    "Hotello",
		})
	} else {
		logger.Warn("SMTP not configured, codes logged instead of mailed")
		m = mailer.NewLogMailer(logger)
	}

	authSvc := auth.NewService(users, sessions, codes, ratelimit.New(rdb), m, cfg.KeyPassphrase, logger)
	checkoutSvc := checkout.NewService(checkouts, rooms)
	bookingSvc := &booking.Service{
		DB:        db,
		Bookings:  bookings,
		Checkouts: checkouts,
		Rooms:     rooms,
		Intervals: bookings,
		Users:     users,
		Provider:  payment.NewStripeProvider(cfg.StripeKey),
		Mailer:    m,
		Publish:   queue_publisher.PublishBookingEvent,
		Log:       logger,
		Currency:  cfg.Currency,
	}

	var suggester assistant.RoomSuggester
	if cfg.GeminiKey != "" {
		suggester = assistant.NewGeminiSuggester(cfg.GeminiKey)
	}

	authHandler := handler.NewAuthHandler(authSvc, users, m, cfg.JWTSecret, cfg.BaseURL, cfg.Env == "prod")
	roomHandler := handler.NewRoomHandler(rooms, bookings, suggester)
	cartHandler := handler.NewCartHandler(rooms, cfg.JWTSecret)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, bookingSvc, cfg.JWTSecret)
	bookingHandler := handler.NewBookingHandler(bookings, bookingSvc)

	// Expired sessions already fail authentication; sweeping them out
	// hourly just keeps the table from growing unbounded.
	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := sessions.DeleteExpired(ctx)
			cancel()
			if err != nil {
				logger.Error("session sweep failed", "err", err)
			} else if n > 0 {
				logger.Info("pruned expired sessions", "count", n)
			}
			time.Sleep(time.Hour)
		}
	}()

	// The consumer tails booking events for the operations log; it
	// reconnects on its own and its absence never blocks requests.
	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartBookingConsumer(); err != nil {
				logger.Error("booking consumer stopped", "err", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, authSvc)
	router.RegisterPublic(e, roomHandler, cartHandler)
	router.RegisterCheckout(e, checkoutHandler, bookingHandler, authSvc, users)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
