package main

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"

	"github.com/clinika/scribe/internal/pkg/ai"
	"github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/ai/groq"
	"github.com/clinika/scribe/internal/pkg/ai/openrouter"
	"github.com/clinika/scribe/internal/pkg/auth"
	"github.com/clinika/scribe/internal/pkg/office"
	"github.com/clinika/scribe/internal/pkg/postgres"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &office.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	data.Filer, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	data.Workflow, err = newWorkflow(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init ai workflow")
	}

	data.Auth, err = auth.NewManager(cfg.GetString("auth.secret"),
		time.Minute*time.Duration(cfg.GetInt("auth.expireMin")))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init auth manager")
	}

	err = office.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func newWorkflow(cfg *viper.Viper) (*ai.Workflow, error) {
	groqCl, err := groq.NewClient(groq.Config{URL: cfg.GetString("groq.url"),
		Key: cfg.GetString("groq.key"), Model: cfg.GetString("groq.model"),
		TranscriptionModel:    cfg.GetString("groq.transcriptionModel"),
		TranscriptionLanguage: cfg.GetString("groq.transcriptionLanguage"),
		Temperature:           cfg.GetFloat64("groq.temperature"),
		TranscriptionTemperature: cfg.GetFloat64("groq.transcriptionTemperature")})
	if err != nil {
		return nil, fmt.Errorf("can't init groq client: %w", err)
	}
	var openRouterCl api.Provider
	if cfg.GetString("openrouter.key") != "" {
		orCl, err := openrouter.NewClient(openrouter.Config{URL: cfg.GetString("openrouter.url"),
			Key: cfg.GetString("openrouter.key"), Model: cfg.GetString("openrouter.model"),
			Temperature: cfg.GetFloat64("openrouter.temperature")})
		if err != nil {
			return nil, fmt.Errorf("can't init openrouter client: %w", err)
		}
		openRouterCl = orCl
	}
	return ai.NewWorkflow(cfg.GetString("ai.provider"), groqCl, openRouterCl)
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   _____ __________  ________  ______
  / ___// ____/ __ \/  _/ __ )/ ____/
  \__ \/ /   / /_/ // // __  / __/
 ___/ / /___/ _, _// // /_/ / /___
/____/\____/_/ |_/___/_____/_____/

          ____________
   ____  / __/ __(_)__________
  / __ \/ /_/ /_/ / ___/ _ \
 / /_/ / __/ __/ / /__/  __/   v: %s
 \____/_/ /_/ /_/\___/\___/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/clinika/scribe"))
}
