package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/backend"
	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/Luismorlan/chirpmux/utils/dotenv"
	Flag "github.com/Luismorlan/chirpmux/utils/flag"
	. "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	csvPath     = flag.String("csv", "", "path to follows.csv, one follower_id,followee_id per line")
	hasHeader   = flag.Bool("header", true, "skip the first line of the csv")
	backendKind = flag.String("backend", backend.Redis, "'redis' or 'sql'")
)

func main() {
	Flag.ServiceName = Flag.LoadFollows
	Flag.ParseFlags()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	InitLogger()

	if *csvPath == "" {
		color.Red("--csv is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := app_config.ParseTimelineAppConfig(Flag.AppConfigPath)
	if err != nil {
		return err
	}
	reporter, err := metrics.New(os.Getenv("DOGSTATSD_ADDR"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api, err := backend.Open(ctx, *backendKind, config, social.WithMetrics(reporter))
	if err != nil {
		return err
	}
	defer api.Close()

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	n, err := api.LoadFollows(ctx, loader.NewCSVEdgeSource(f, *hasHeader))
	if err != nil {
		Log.WithField("inserted", n).Errorln("load stopped: ", err)
		return errors.Wrapf(err, "load stopped after inserting %d edges", n)
	}
	color.Green("Inserted %d new edges in %s (duplicates ignored)", n, time.Since(start).Round(time.Millisecond))
	return nil
}
