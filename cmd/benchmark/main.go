package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/backend"
	"github.com/Luismorlan/chirpmux/utils/dotenv"
	Flag "github.com/Luismorlan/chirpmux/utils/flag"
	. "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	backendKind = flag.String("backend", backend.Redis, "'redis' (fan-out on write) or 'sql' (fan-out on read)")
	users       = flag.Uint64("users", 1000, "user ids are drawn from [1, users]")
	follows     = flag.Int("follows", 10000, "random follow edges loaded before posting, 0 keeps the existing graph")
	posts       = flag.Int("posts", 10000, "number of posts")
	reads       = flag.Int("reads", 10000, "number of home timeline reads")
	workers     = flag.Int("workers", 8, "concurrent requests")
	seed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
)

func main() {
	Flag.ServiceName = Flag.Benchmark
	Flag.ParseFlags()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	InitLogger()
	// Per operation logs would dominate the measurement.
	SetLevel(logrus.WarnLevel)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api, err := backend.Open(ctx, *backendKind, config)
	if err != nil {
		return err
	}
	defer api.Close()

	color.Cyan("backend=%s users=%d follows=%d posts=%d reads=%d workers=%d seed=%d",
		*backendKind, *users, *follows, *posts, *reads, *workers, *seed)
	summaries, err := Run(ctx, api, Options{
		Users:   *users,
		Follows: *follows,
		Posts:   *posts,
		Reads:   *reads,
		Workers: *workers,
		Seed:    *seed,
	})
	for _, s := range summaries {
		printSummary(s)
	}
	return err
}

func printSummary(s Summary) {
	title := color.New(color.FgGreen, color.Bold).SprintfFunc()
	if s.Phase == "load" {
		color.White("%s %d new edges in %s (%.0f edges/s)",
			title("%-5s", s.Phase), s.Ops, s.Elapsed.Round(time.Millisecond), s.Throughput)
		return
	}
	color.White("%s %d ops in %s, %.0f ops/s, mean %s, p50 %s, p95 %s, p99 %s",
		title("%-5s", s.Phase), s.Ops, s.Elapsed.Round(time.Millisecond), s.Throughput,
		s.Mean.Round(time.Microsecond), s.P50.Round(time.Microsecond),
		s.P95.Round(time.Microsecond), s.P99.Round(time.Microsecond))
	if s.Phase == "read" {
		color.White("%s mean timeline size %.1f", title("%-5s", ""), s.MeanTimelineSize)
	}
}
