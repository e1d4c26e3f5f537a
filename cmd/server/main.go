package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/app"
	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/config"
	"github.com/Freeeeeet/consult_booking/internal/controller"
	"github.com/Freeeeeet/consult_booking/internal/controller/handlers"
	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/gateway/portone"
	"github.com/Freeeeeet/consult_booking/internal/notify"
	"github.com/Freeeeeet/consult_booking/internal/repository"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/Freeeeeet/consult_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting consult booking server",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("default_zone", cfg.DefaultZone))

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	// Репозитории
	tx := base.NewTxManager(pool)
	users := repository.NewUserRepository(pool)
	rules := repository.NewAvailabilityRuleRepository(pool, logger)
	slots := repository.NewSlotRepository(pool)
	appointments := repository.NewAppointmentRepository(pool)
	orders := repository.NewOrderRepository(pool)
	payments := repository.NewPaymentRepository(pool)
	refunds := repository.NewRefundRepository(pool)

	zones := availability.NewZones(cfg.DefaultZone)
	engine := availability.NewEngine(zones)
	links := service.MeetingLinks{Base: cfg.MeetingBaseURL}

	// Шлюз
	tokens, closeTokens, err := tokenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTokens()

	if !cfg.PortOneConfigured() {
		logger.Warn("PortOne credentials are not set, gateway calls will fail")
	}
	gw := portone.NewClient(portone.Config{
		BaseURL:   cfg.PortOneBaseURL,
		APIKey:    cfg.PortOneAPIKey,
		APISecret: cfg.PortOneAPISecret,
		Timeout:   cfg.PortOneTimeout,
	}, tokens, logger.Named("portone"))

	// События
	publisher, closeEvents, err := eventPublisher(cfg, users, zones, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	// Сервисы
	availabilityService := service.NewAvailabilityService(users, rules, engine, logger)
	slotService := service.NewSlotService(tx, users, rules, slots, zones, logger)
	appointmentService := service.NewAppointmentService(service.AppointmentDeps{
		Tx:           tx,
		Users:        users,
		Rules:        rules,
		Appointments: appointments,
		Orders:       orders,
		Engine:       engine,
		Links:        links,
		Events:       publisher,
		HoldTTL:      cfg.HoldTTL,
		Logger:       logger,
	})
	paymentService := service.NewPaymentService(service.PaymentDeps{
		Tx:                   tx,
		Users:                users,
		Rules:                rules,
		Slots:                slots,
		Appointments:         appointments,
		Orders:               orders,
		Payments:             payments,
		Refunds:              refunds,
		Ledger:               appointmentService,
		Gateway:              gw,
		Zones:                zones,
		Links:                links,
		Events:               publisher,
		Logger:               logger,
		RequirePublishedSlot: cfg.RequirePublishedSlot,
	})

	// Фоновые задачи
	scheduler, err := app.NewScheduler(appointmentService, cfg.ExpirySchedule, logger)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandlers(availabilityService, slotService, appointmentService, paymentService, logger)
	router, err := controller.NewRouter(controller.RouterConfig{
		AllowOrigins:     cfg.CORSOrigins,
		WebhookPerMinute: cfg.WebhookPerMinute,
		WebhookBurst:     cfg.WebhookBurst,
	}, h, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// tokenStore общий кэш токена в Redis, если он настроен, иначе в памяти процесса
func tokenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (portone.TokenStore, func(), error) {
	if cfg.RedisAddr == "" {
		return portone.NewMemoryTokenStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Gateway token cache uses Redis", zap.String("addr", cfg.RedisAddr))
	return portone.NewRedisTokenStore(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}, nil
}

// eventPublisher RabbitMQ и Telegram, если настроены
func eventPublisher(cfg *config.Config, users notify.UserLookup, zones *availability.Zones, logger *zap.Logger) (events.Publisher, func(), error) {
	var (
		multi   events.Multi
		closers []func()
	)

	if cfg.RabbitURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			return nil, nil, err
		}
		multi = append(multi, amqpPub)
		closers = append(closers, func() {
			if err := amqpPub.Close(); err != nil {
				logger.Warn("Failed to close rabbitmq publisher", zap.Error(err))
			}
		})
		logger.Info("Publishing events to rabbitmq", zap.String("exchange", cfg.EventsExchange))
	}

	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken, bot.WithSkipGetMe())
		if err != nil {
			return nil, nil, fmt.Errorf("create telegram bot: %w", err)
		}
		multi = append(multi, notify.NewTelegramNotifier(b, users, zones.Default(), logger.Named("telegram")))
		logger.Info("Telegram notifications enabled")
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(multi) == 0 {
		return events.Nop{}, closeAll, nil
	}
	return multi, closeAll, nil
}
