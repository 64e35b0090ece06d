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

	_ "github.com/jackc/pgx/v5/stdlib"

	"evenue.org/internal/auth"
	"evenue.org/internal/catalog"
	"evenue.org/internal/config"
	"evenue.org/internal/httpapi"
	"evenue.org/internal/obs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if cfg.PGDSN == "" {
		log.Fatal("missing DSN: set EVENUE_PG_DSN or pg_dsn in the config file")
	}
	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	codec, err := auth.NewCodec(cfg.SecretBytes(), cfg.JWTIssuer, cfg.AccessTTL())
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	authSvc, err := auth.NewService(auth.NewPGStore(db), codec)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	catalogSvc, err := catalog.NewService(catalog.NewPGStore(db))
	if err != nil {
		log.Fatalf("catalog service: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Ready:           httpapi.ReadyProbe{DB: db},
		Version:         version,
		Auth:            authSvc,
		Catalog:         catalogSvc,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting evenue-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
