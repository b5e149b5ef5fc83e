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

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/api/handlers"
	"github.com/geijin5/apsar-emergency-api/api/scheduler"
	"github.com/geijin5/apsar-emergency-api/config"
)

func main() {
	conf, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &handlers.App{Config: *conf}
	if err := a.Initialize(ctx); err != nil { //initialize database and router
		zap.S().Fatalw("failed to initialize", "error", err)
	}

	sched := scheduler.NewScheduler(a.Services.Notifications, a.Services.Assets, a.Limiter, a.Store.SchedulerLocks, conf.NotificationRetention)
	sched.Start()

	srv := &http.Server{
		Addr:              ":" + conf.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.S().Infow("apsar-emergency-api is up and running",
			"port", conf.Port,
			"url", conf.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("http server did not shut down cleanly", "error", err)
	}
	a.Shutdown(shutdownCtx)
	_ = zap.L().Sync()
}
