package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chartgallery/internal/api"
	"chartgallery/internal/app"
	"chartgallery/internal/config"
	"chartgallery/internal/util"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfgPath := "config/gallery.yaml"
	if p := os.Getenv("GALLERY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logFileName := filepath.Join(os.TempDir(),
		fmt.Sprintf("gallery-server-%s.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, io.MultiWriter(os.Stdout, logFile))
	util.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("wiring gallery: %v", err)
	}
	defer a.Close()

	if _, err := a.Gallery.Rebuild(); err != nil {
		logger.Error("initial index rebuild", "error", err)
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           a.HTTPServer().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcServer *api.Server
	if cfg.Server.GRPCPort > 0 {
		grpcServer = api.NewServer(net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort)), logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("gallery server listening", "addr", httpServer.Addr, "dir", cfg.Storage.GalleryDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()
	if grpcServer != nil {
		go func() {
			if err := grpcServer.ListenAndServe(); err != nil {
				logger.Error("gRPC server error", "error", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down gallery server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC shutdown error", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
