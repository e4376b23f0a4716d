package main

import (
	"flag"
	"time"
)

// CLIConfig holds command-line configuration for a single boardctl invocation.
type CLIConfig struct {
	ListenAddress string
	Duration      time.Duration
	MarkerValue   float64
	LogLevel      string
	LogFormat     string
}

func parseFlags(cmdName string, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)

	fs.StringVar(&cfg.ListenAddress, "listen", "127.0.0.1:21001",
		"UDP address the Wifi board listens on")
	fs.DurationVar(&cfg.Duration, "duration", 3*time.Second,
		"how long to stream for")
	fs.Float64Var(&cfg.MarkerValue, "value", 1,
		"marker value for the marker command")
	fs.StringVar(&cfg.LogLevel, "log-level", "info",
		"log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "text",
		"log format: json, text")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
