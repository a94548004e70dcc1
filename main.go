package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/DKasatik/Power-Monitor-Bot/internal/api/http"
	"github.com/DKasatik/Power-Monitor-Bot/internal/notify"
	"github.com/DKasatik/Power-Monitor-Bot/internal/observability/metrics"
	"github.com/DKasatik/Power-Monitor-Bot/internal/power/application"
	powerrepo "github.com/DKasatik/Power-Monitor-Bot/internal/power/infrastructure/postgres"
	"github.com/DKasatik/Power-Monitor-Bot/internal/schedule/yasno"
	"github.com/DKasatik/Power-Monitor-Bot/internal/sensor/tuya"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	store := powerrepo.NewEventStore(db)

	sensor, err := tuya.NewClient(cfg.TuyaEndpoint, cfg.TuyaAccessID, cfg.TuyaAccessKey, cfg.TuyaDeviceID)
	if err != nil {
		logger.Fatalf("tuya client error: %v", err)
	}

	scheduleClient, err := yasno.NewClient(cfg.YasnoRegion, cfg.YasnoDSO, cfg.YasnoGroup)
	if err != nil {
		logger.Fatalf("yasno client error: %v", err)
	}

	var notifier application.Notifier
	var channels []notify.Channel
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		channel, err := notify.NewTelegramChannel(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Fatalf("telegram channel error: %v", err)
		}
		channels = append(channels, channel)
	}
	if cfg.NotifyWebhookURL != "" {
		channel, err := notify.NewWebhookChannel(cfg.NotifyWebhookURL)
		if err != nil {
			logger.Fatalf("webhook channel error: %v", err)
		}
		channels = append(channels, channel)
	}
	if len(channels) > 0 {
		tpl, err := notify.NewTemplate(cfg.NotifyTemplate)
		if err != nil {
			logger.Fatalf("notify template error: %v", err)
		}
		opts := []notify.Option{
			notify.WithCooldown(cfg.NotifyCooldown),
			notify.WithDedupeWindow(cfg.NotifyDedupeWindow),
		}
		notifier, err = notify.NewNotifier(notify.NewMultiChannel(channels...), tpl, logger, opts...)
		if err != nil {
			logger.Fatalf("notifier error: %v", err)
		}
	}

	monitorCfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatalf("monitor config error: %v", err)
	}
	monitor, err := application.NewMonitor(store, sensor, scheduleClient, notifier, monitorCfg, logger)
	if err != nil {
		logger.Fatalf("monitor error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Fatalf("monitor run error: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/api/v1/state", apihttp.NewStateHandler(store))
	mux.Handle("/api/v1/events", apihttp.NewEventsHandler(store))
	mux.Handle("/api/v1/statistics/daily", apihttp.NewDailyStatisticsHandler(store))
	mux.Handle("/api/v1/statistics/period", apihttp.NewPeriodStatisticsHandler(store))
	mux.Handle("/api/v1/schedule", apihttp.NewScheduleHandler(scheduleClient))
	mux.Handle("/api/v1/exports/statistics.csv", apihttp.NewExportStatisticsCSVHandler(store))
	mux.Handle("/api/v1/exports/statistics.xlsx", apihttp.NewExportStatisticsXLSXHandler(store))
	mux.Handle("/api/v1/reports/outages.pdf", apihttp.NewOutageReportPDFHandler(store))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL        string
	HTTPAddr           string
	TuyaEndpoint       string
	TuyaAccessID       string
	TuyaAccessKey      string
	TuyaDeviceID       string
	YasnoRegion        string
	YasnoDSO           string
	YasnoGroup         string
	TelegramToken      string
	TelegramChatID     string
	NotifyWebhookURL   string
	NotifyTemplate     string
	NotifyCooldown     time.Duration
	NotifyDedupeWindow time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		TuyaEndpoint:       getenvDefault("TUYA_ENDPOINT", "https://openapi.tuyaeu.com"),
		TuyaAccessID:       getenvDefault("TUYA_ACCESS_ID", ""),
		TuyaAccessKey:      getenvDefault("TUYA_ACCESS_KEY", ""),
		TuyaDeviceID:       getenvDefault("TUYA_DEVICE_ID", ""),
		YasnoRegion:        getenvDefault("YASNO_REGION", "kiev"),
		YasnoDSO:           getenvDefault("YASNO_DSO", "dtek-kiev"),
		YasnoGroup:         getenvDefault("YASNO_GROUP", "group_2"),
		TelegramToken:      getenvDefault("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:     getenvDefault("TELEGRAM_CHAT_ID", ""),
		NotifyWebhookURL:   getenvDefault("NOTIFY_WEBHOOK_URL", ""),
		NotifyTemplate:     getenvDefault("NOTIFY_TEMPLATE", ""),
		NotifyCooldown:     getenvDuration("NOTIFY_COOLDOWN", 0),
		NotifyDedupeWindow: getenvDuration("NOTIFY_DEDUP_WINDOW", 0),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.TuyaAccessID == "" || cfg.TuyaAccessKey == "" {
		log.Fatal("TUYA_ACCESS_ID and TUYA_ACCESS_KEY are required")
	}
	if cfg.TuyaDeviceID == "" {
		log.Fatal("TUYA_DEVICE_ID is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
