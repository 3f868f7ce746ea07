// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/bot"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	runner, err := bot.NewRunner(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to assemble pipeline", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Pipeline error", zap.Error(err))
	}
}
