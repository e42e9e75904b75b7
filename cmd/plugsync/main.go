// plugsync bridges an MQTT broker to a set of smart plugs.
//
// It keeps each plug's relay in sync with its bus topic, publishes state
// and energy-meter readings, and turns plugs off when their keep-alive
// signal goes silent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath picks the config file: the --config flag, then
// PLUGSYNC_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("PLUGSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
