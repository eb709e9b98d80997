package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopscribe/loopscribe/audio"
	"github.com/loopscribe/loopscribe/config"
	"github.com/loopscribe/loopscribe/scribe"
	"github.com/loopscribe/loopscribe/server"
)

func main() {
	listDevices := flag.Bool("list-devices", false, "List available audio endpoints and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	host, err := audio.NewPortAudioHost()
	if err != nil {
		slog.Error("Failed to initialize audio platform", "error", err)
		os.Exit(1)
	}
	defer host.Close()

	if *listDevices {
		printEndpoints(host)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Debug("Received shutdown signal")
		cancel()
	}()

	scribeService, err := scribe.New(scribe.Config{
		Engine:         cfg.Engine,
		Language:       cfg.Language,
		GoogleAPIKey:   cfg.GoogleAPIKey,
		DeepgramAPIKey: cfg.DeepgramAPIKey,
		DeepgramModel:  cfg.DeepgramModel,
		WhisperPath:    cfg.WhisperPath,
		WhisperModel:   cfg.WhisperModel,
		WatchDir:       cfg.WatchDir,
		Workers:        cfg.Workers,
	})
	if err != nil {
		slog.Error("Failed to initialize Scribe", "error", err)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		OutputDir:      cfg.OutputDir,
		MetricsEnabled: cfg.MetricsEnabled,
	}, host, scribeService)

	if err := scribeService.Start(ctx); err != nil {
		slog.Error("Scribe service failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := scribeService.Stop(stopCtx); err != nil {
			slog.Error("Failed to stop Scribe service", "error", err)
		}
	}()

	if err := srv.Start(ctx); err != nil {
		slog.Error("HTTP server failed", "error", err)
	}

	slog.Debug("Program exiting")
}

func printEndpoints(host *audio.PortAudioHost) {
	endpoints, err := host.Endpoints()
	if err != nil {
		slog.Error("Failed to list audio endpoints", "error", err)
		os.Exit(1)
	}

	fmt.Println("Available audio endpoints:")
	for _, ep := range endpoints {
		fmt.Printf("[%d] %s\n", ep.ID, ep.Name)
		fmt.Printf("    Max Input Channels: %d\n", ep.MaxInputChannels)
		fmt.Printf("    Default Sample Rate: %f\n", ep.DefaultSampleRate)
		fmt.Printf("    Loopback: %v\n", ep.IsLoopback)
		fmt.Println()
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
