// Command wabridge runs the session multiplexer daemon: it restores
// persisted sessions, keeps them connected, and serves the REST facade.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wabridge/config"
	"github.com/opd-ai/wabridge/credstore"
	"github.com/opd-ai/wabridge/delivery"
	"github.com/opd-ai/wabridge/httpapi"
	"github.com/opd-ai/wabridge/session"
	"github.com/opd-ai/wabridge/transport"
	"github.com/opd-ai/wabridge/transport/memory"
	"github.com/opd-ai/wabridge/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Loading configuration failed")
	}
	setupLogging(cfg)

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("Daemon exited with error")
	}
}

func setupLogging(cfg config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	logrus.SetLevel(level)
	if cfg.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func run(cfg config.Config) error {
	creds, err := credstore.New(cfg.SessionsDir, &credstore.Options{
		Passphrase: cfg.StorePassphrase,
	})
	if err != nil {
		return err
	}

	var events session.Notifier
	if cfg.WebhookURL != "" {
		events = webhook.New(cfg.WebhookURL, &webhook.Options{Secret: cfg.WebhookSecret})
		logrus.WithField("url", cfg.WebhookURL).Info("Webhook dispatch enabled")
	}

	manager := session.NewManager(newDialer(), &session.Options{
		Credentials: creds,
		Events:      events,
	})
	sender := delivery.NewSender(manager, &delivery.Options{
		BulkDelay: time.Duration(cfg.BulkDelayMS) * time.Millisecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Bootstrap(ctx); err != nil {
		logrus.WithError(err).Error("Restoring persisted sessions failed")
	}

	api := httpapi.New(manager, sender, &httpapi.Options{
		APIKey:       cfg.APIKey,
		GlobalRPS:    cfg.RateLimits.GlobalRPS,
		GlobalBurst:  cfg.RateLimits.GlobalBurst,
		MessageRPS:   cfg.RateLimits.MessageRPS,
		MessageBurst: cfg.RateLimits.MessageBurst,
	})
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("HTTP facade listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP shutdown failed")
	}
	manager.Shutdown()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newDialer constructs the protocol engine. The in-process simulated
// engine is the development default; a production build swaps in a
// real engine behind the same transport.Dialer contract.
func newDialer() transport.Dialer {
	d := memory.NewDialer()
	d.AutoPair = true
	d.PairDelay = 2 * time.Second
	return d
}
