package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/breach"
	"github.com/dmitrijs2005/tresorly/internal/server/config"
	"github.com/dmitrijs2005/tresorly/internal/vaultctl"
)

func main() {

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, vaultctl.ErrUsage)
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	analyzer := breach.NewAnalyzer(breach.NewRangeClient(cfg.BreachAPIURL, cfg.BreachTimeout), logger)
	app := vaultctl.NewApp(cfg, os.Stdin, os.Stdout, analyzer)

	if err := app.Run(ctx, os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

}
