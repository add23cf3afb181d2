package main

import (
	"context"
	"embed"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/api"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/observability"

	"github.com/joho/godotenv"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLoggerWithLevel(cfg.Log.Format == "json", observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()
	if envErr != nil {
		observability.Info("no .env file found, using environment variables")
	}

	application := app.Open(context.Background(), cfg)
	desktop := NewDesktop(application)

	// Static assets hold only the icon; every page comes from the router
	router := api.NewRouter(api.NewHandler(application, cfg), cfg)

	// Run Wails application
	err = wails.Run(&options.App{
		Title:  "Portfolio Tracker",
		Width:  1280,
		Height: 860,
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: router,
		},
		BackgroundColour: options.NewRGB(29, 35, 48),
		OnStartup:        desktop.startup,
		OnShutdown:       desktop.shutdown,
		Bind: []interface{}{
			desktop,
		},
	})

	if err != nil {
		observability.Fatal("desktop runtime failed", "error", err)
	}
}
