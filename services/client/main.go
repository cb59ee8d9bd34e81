package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudchat/internal/apiclient"
	"github.com/cloudchat/internal/app"
	"github.com/cloudchat/internal/config"
	"github.com/cloudchat/internal/logger"
)

func main() {
	logger.SetPrefix("client")
	configPath := flag.String("config", "", "path to client YAML config (overrides CONFIG_PATH)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_PATH", *configPath)
	}
	cfg := config.Load()
	logger.Infof("services: auth=%s chat=%s files=%s notifications=%s", cfg.AuthURL, cfg.ChatURL, cfg.FileURL, cfg.NotificationURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, app.DepsFrom(apiclient.New(cfg)), app.OptionsFrom(cfg))
	defer a.Close()

	sh := newShell(a, os.Stdin, os.Stdout)
	unsubscribe := sh.watchUnread()
	defer unsubscribe()

	sh.run(ctx)
	logger.Info("client stopped")
}
