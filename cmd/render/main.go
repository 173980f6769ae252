// Command render draws the payoff charts of a teaching document for one
// reference price and exits.
package main

import (
	"flag"
	"fmt"
	"os"

	"option-guide/src/chart"
	"option-guide/src/config"
	"option-guide/src/logger"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file (pricing and chart settings)")
	contentPath := flag.String("content", "", "teaching document; defaults to the configured content path")
	s0 := flag.Float64("s0", 0, "reference price; defaults to the configured start price")
	tabID := flag.String("tab", "", "render only this tab")
	outDir := flag.String("out", "charts", "output directory")
	formatName := flag.String("format", "png", "chart format: png or svg")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(conf.MConfig, "Render")

	format, err := chart.ParseFormat(*formatName)
	if err != nil {
		appLogger.Critical("%v", err)
	}
	if *contentPath == "" {
		*contentPath = conf.ContentPath
	}
	if *s0 == 0 {
		*s0 = conf.Stream.StartPrice
	}

	job := renderJob{
		ContentPath: *contentPath,
		TabID:       *tabID,
		S0:          *s0,
		OutDir:      *outDir,
		Format:      format,
	}
	paths, err := job.run(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Render failed: %v", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
