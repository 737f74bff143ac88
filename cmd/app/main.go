package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"ZPulse/internal/di"
	"ZPulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbols := flag.String("symbols", "", "comma separated symbols, overrides config")
	symbolsFile := flag.String("file", "", "file with one symbol per line, overrides config")
	test := flag.Bool("test", false, "replay historical ticks instead of live stream")
	daysAgo := flag.Int("days-ago", 0, "replay window start, days before today")
	ndays := flag.Int("ndays", 0, "replay window length in days")
	streamType := flag.String("stream-type", "", "live stream type: trades or bars")
	sigmaThresh := flag.Float64("sigma-thresh", 0, "z-score alert threshold, overrides config")
	trendThresh := flag.Float64("zscore-trend-thresh", 0, "z-score trend alert threshold, overrides config")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *symbols != "" {
		cfg.Stream.Symbols = strings.Split(*symbols, ",")
	}
	if *symbolsFile != "" {
		cfg.Stream.SymbolsFile = *symbolsFile
	}
	if *test {
		cfg.Replay.Enabled = true
	}
	if *daysAgo > 0 {
		cfg.Replay.DaysAgo = *daysAgo
	}
	if *ndays > 0 {
		cfg.Replay.NDays = *ndays
	}
	if *streamType != "" {
		cfg.Stream.StreamType = *streamType
	}
	if *sigmaThresh > 0 {
		cfg.Engine.SigmaThresh = *sigmaThresh
	}
	if *trendThresh > 0 {
		cfg.Engine.ZScoreTrendThresh = *trendThresh
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	log.Printf("env=%s replay=%v stream_type=%s sigma_thresh=%.2f zscore_trend_thresh=%.2f",
		cfg.Environment, cfg.Replay.Enabled, cfg.Stream.StreamType,
		cfg.Engine.SigmaThresh, cfg.Engine.ZScoreTrendThresh)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
