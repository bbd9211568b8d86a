package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/archive"
	"github.com/Luismorlan/chirpmux/engine"
	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/server"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/Luismorlan/chirpmux/utils"
	"github.com/Luismorlan/chirpmux/utils/dotenv"
	Flag "github.com/Luismorlan/chirpmux/utils/flag"
	. "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/gin-gonic/gin"
)

func cleanup() {
	utils.CloseProfiler()
	utils.CloseTracer()
	Log.Info("api server shutdown")
}

func main() {
	Flag.ParseFlags()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	InitLogger()
	utils.StartTracer()
	if err := utils.StartProfiler(); err != nil {
		Log.Warnln(err)
	}
	defer cleanup()

	config, err := app_config.ParseTimelineAppConfig(Flag.AppConfigPath)
	if err != nil {
		Log.Fatalln(err)
	}
	if !Flag.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := metrics.New(os.Getenv("DOGSTATSD_ADDR"))
	if err != nil {
		Log.Fatalln(err)
	}

	s, err := utils.GetRedisStore(ctx)
	if err != nil {
		Log.Fatalln(err)
	}

	eventbus := engine.NewEventBus()
	opts := []social.Option{social.WithMetrics(reporter)}
	modules := []engine.Module{}
	if config.ARCHIVE_ENABLED {
		db, err := utils.WaitForDBConnection(ctx)
		if err != nil {
			Log.Fatalln(err)
		}
		if err := utils.DatabaseSetupAndMigration(db); err != nil {
			Log.Fatalln(err)
		}
		opts = append(opts, social.WithEventPublisher(eventbus))
		// Archiver copies every post and new follow into Postgres.
		modules = append(modules, archive.NewArchiver(
			archive.ArchiverConfig{Name: "archiver"},
			archive.NewArchive(db),
			eventbus,
			reporter,
		))
	}

	svc, err := social.NewService(s, utils.GetKeySchema(), config, opts...)
	if err != nil {
		Log.Fatalln(err)
	}
	defer svc.Close()

	routerOpts := []server.RouterOption{server.WithMetrics(reporter)}
	if Flag.EnableDatadog {
		routerOpts = append(routerOpts, server.WithTracing(Flag.ServiceName))
	}
	modules = append(modules, server.NewHTTPModule(Flag.ServiceName, config.HTTP_ADDR, server.NewRouter(svc, routerOpts...)))

	e := engine.NewEngine(ctx, modules, eventbus)
	Log.Info("api server starts up")
	// blocking call, returns once a signal cancels ctx.
	e.Run()
	e.Shutdown()
}
