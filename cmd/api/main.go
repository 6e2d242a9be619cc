package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fleetroute/internal/api"
	"fleetroute/internal/auth"
	"fleetroute/internal/buildinfo"
	"fleetroute/internal/config"
	"fleetroute/internal/metrics"
	"fleetroute/internal/store"
	"fleetroute/internal/webhooks"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		st = pg
		log.Printf("store: postgres")
	} else {
		st = store.NewMemory()
		log.Printf("store: memory")
	}
	defer st.Close()

	var broker api.Broker
	if cfg.RedisURL != "" {
		rb, err := api.NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		broker = rb
		log.Printf("broker: redis")
	} else {
		broker = api.NewMemoryBroker()
		log.Printf("broker: memory")
	}
	defer broker.Close()

	verifier, err := auth.New(cfg.AuthMode, cfg.AuthSecret)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	m := metrics.New()
	srv := api.New(st, broker, verifier, m, cfg)

	worker := &webhooks.Worker{
		Store: st,
		OnResult: func(status string) {
			m.WebhookDeliveries.WithLabelValues(status).Inc()
		},
	}
	go worker.Run(ctx)

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withLogging(srv.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Printf("fleetroute %s listening on :%s", buildinfo.Version, cfg.Port)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
