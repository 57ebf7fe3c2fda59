package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/telecare-labs/telesched/libs/config"
	"github.com/telecare-labs/telesched/libs/db"
	"github.com/telecare-labs/telesched/libs/httpx"
	"github.com/telecare-labs/telesched/libs/kafkax"
	otelx "github.com/telecare-labs/telesched/libs/otel"
	"github.com/telecare-labs/telesched/libs/runtime"
	"github.com/telecare-labs/telesched/services/availability-service/internal/booking"
	"github.com/telecare-labs/telesched/services/availability-service/internal/consumer"
	"github.com/telecare-labs/telesched/services/availability-service/internal/engine"
	"github.com/telecare-labs/telesched/services/availability-service/internal/handlers"
	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/inbox"
	"github.com/telecare-labs/telesched/services/availability-service/internal/outbox"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
	"github.com/telecare-labs/telesched/services/availability-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// slotEventPayload is the shape both appointment topics share; the
// engine only needs practitioner, date and slot start.
type slotEventPayload struct {
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`
	SlotStart      string `json:"slot_start"`
}

func decodeSlotEvent(msg kafka.Message) (string, horizon.Date, schedule.TimeOfDay, error) {
	var payload slotEventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return "", "", 0, err
	}
	date, err := horizon.ParseDate(payload.Date)
	if err != nil {
		return "", "", 0, err
	}
	start, err := schedule.ParseTimeOfDay(payload.SlotStart)
	if err != nil {
		return "", "", 0, err
	}
	return strings.TrimSpace(payload.PractitionerID), date, start, nil
}

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 8)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewAvailabilityRepository(pool, outboxRepo)

	bookingProvider, err := booking.NewProvider(config.String("BOOKING_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("booking provider init failed; occupancy counters only", "err", err)
		bookingProvider = nil
	}

	eng := engine.New(repo, logger, engine.Options{
		Provider:           bookingProvider,
		DefaultSlotMinutes: config.Int("DEFAULT_SLOT_MINUTES", 30),
	})

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string, apply func(ctx context.Context, practitionerID string, date horizon.Date, start schedule.TimeOfDay) error) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		consumerCfg := consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "availability-service"),
			Topic:   topic,
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
			practitionerID, date, start, err := decodeSlotEvent(msg)
			if err != nil || practitionerID == "" {
				logger.Error("invalid appointment event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			err = apply(ctx, practitionerID, date, start)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, engine.ErrNotConfigured),
				errors.Is(err, horizon.ErrSlotNotFound),
				errors.Is(err, horizon.ErrPastDateImmutable):
				// Stale or foreign event; dropping is correct, retry would loop.
				logger.Warn("appointment event skipped", "err", err, "topic", msg.Topic, "practitioner_id", practitionerID)
				return nil
			default:
				return err
			}
		})
		go eventConsumer.Run(ctx)
	}
	startConsumer(config.String("KAFKA_BOOKED_TOPIC", "appointment.booked.v1"), eng.OccupySlot)
	startConsumer(config.String("KAFKA_CANCELLED_TOPIC", "appointment.cancelled.v1"), eng.ReleaseSlot)

	h := handlers.New(eng, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	var publicRateLimit httpx.Middleware
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		publicRateLimit = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("public rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		publicRateLimit = rl.Middleware()
		logger.Info("public rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	// The patient-facing booking UI calls the public route from the
	// browser; the practitioner routes are backend-only.
	publicCORS := httpx.WithCORS(httpx.CORSPolicy{
		AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
		AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,OPTIONS")),
		AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")),
		AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
	})

	mux.Handle("/api/v1/public/availability", publicCORS(publicRateLimit(http.HandlerFunc(h.GetAvailability))))
	mux.HandleFunc("/api/v1/schedule", h.GetSchedule)
	mux.HandleFunc("/api/v1/schedule/days", h.UpdateDay)
	mux.HandleFunc("/api/v1/schedule/breaks", h.Breaks)
	mux.HandleFunc("/api/v1/schedule/materialize", h.Materialize)
	mux.HandleFunc("/api/v1/schedule/extend", h.Extend)
	mux.HandleFunc("/api/v1/schedule/blocks", h.Blocks)
	mux.HandleFunc("/api/v1/schedule/slots/occupy", h.OccupySlot)
	mux.HandleFunc("/api/v1/schedule/slots/release", h.ReleaseSlot)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 15))*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
