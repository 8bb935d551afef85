package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nimbusbot/nimbus/common/version"
	"github.com/nimbusbot/nimbus/internal/nimbus/app"
)

func main() {
	fmt.Printf("Nimbus\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	config, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	configureLogging(config.LogLevel)

	nimbus, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Nimbus: %v\n", err)
		os.Exit(1)
	}
	defer nimbus.Stop()

	if err := nimbus.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Nimbus: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
