package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/clinika/scribe/internal/pkg/ai"
	"github.com/clinika/scribe/internal/pkg/ai/api"
	"github.com/clinika/scribe/internal/pkg/ai/groq"
	"github.com/clinika/scribe/internal/pkg/ai/openrouter"
	"github.com/clinika/scribe/internal/pkg/postgres"
	"github.com/clinika/scribe/internal/pkg/utils"
	"github.com/clinika/scribe/internal/pkg/worker"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
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

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = cfg.GetInt("worker.count")
	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	data.Workflow, err = newWorkflow(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init ai workflow")
	}

	printBanner()

	go utils.RunPerfEndpoint()

	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
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

                      __
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /       v: %s
|__/|__/\____/_/  /_/|_|\___/_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/clinika/scribe"))
}
