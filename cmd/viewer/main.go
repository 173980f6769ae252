// Command viewer follows a running server's price stream and keeps a
// directory of payoff charts up to date with the latest reference price.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"option-guide/src/chart"
	"option-guide/src/config"
	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/network"
	"option-guide/src/stream"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file (pricing and chart settings)")
	baseURL := flag.String("url", "http://127.0.0.1:3101", "base URL of the option guide server")
	contentPath := flag.String("content", "", "local teaching document; fetched from the server when empty")
	outDir := flag.String("out", "charts", "directory receiving the rendered charts")
	formatName := flag.String("format", "png", "chart format: png or svg")
	reconnect := flag.Bool("reconnect", false, "reconnect when the stream ends")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(conf.MConfig, "Viewer")

	format, err := chart.ParseFormat(*formatName)
	if err != nil {
		appLogger.Critical("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := strings.TrimRight(*baseURL, "/")
	netMgr := network.NewAsyncNetworkManager(conf.MConfig, appLogger.Named("NetworkManager"))
	doc, err := loadDocument(ctx, *contentPath, base+"/api/teaching", netMgr)
	if err != nil {
		appLogger.Critical("Failed to load teaching content: %v", err)
	}

	v := newViewer(conf.MConfig, doc, *outDir, format, appLogger)
	appLogger.Info("Following %s/api/stream, writing %s charts to %s", base, format, *outDir)

	// The stream itself is long-lived, so the client carries no timeout.
	client := &http.Client{}
	errHandler := helpers.NewErrorHandler(appLogger.Named("ErrorHandler"))
	for {
		err := stream.Subscribe(ctx, client, base+"/api/stream", v.onTick)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			appLogger.Info("Stream ended by server")
			errHandler.ResetErrorCount()
		} else if errHandler.Handle(err, "stream") {
			appLogger.Critical("Giving up after %d consecutive stream failures", errHandler.ErrorCount)
		}
		if !*reconnect {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
		}
		if ctx.Err() != nil {
			break
		}
	}
	appLogger.Info("Viewer stopped after %d renders", v.renders)
}
