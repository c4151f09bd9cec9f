// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command curon starts the Curon HTTP server.
//
// This is the main entry point for the containerized service. It reads
// configuration from an optional YAML file and environment variables
// (environment wins) and starts the server.
//
// # Environment Variables
//
//   - CURON_PORT: HTTP server port (default: 12310)
//   - CURON_LLM_BACKEND: translator provider - openai, ollama (default: openai)
//   - CURON_DB_PATH: BadgerDB data directory (default: ./data)
//   - CURON_CONFIG_FILE: path to a YAML config file (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: curon-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o curon ./cmd/curon
//
//	# Run
//	./curon
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/curonhq/curon/services/server"
)

// fileConfig mirrors the YAML config file. Every field is optional;
// environment variables override file values.
type fileConfig struct {
	Port         int    `yaml:"port"`
	LLMBackend   string `yaml:"llm_backend"`
	DBPath       string `yaml:"db_path"`
	OTelEndpoint string `yaml:"otel_endpoint"`
	GinMode      string `yaml:"gin_mode"`
}

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	fc := loadConfigFile(os.Getenv("CURON_CONFIG_FILE"))

	// Build configuration: file values first, environment wins
	cfg := server.Config{
		Port:         getEnvInt("CURON_PORT", fc.Port),
		LLMBackend:   getEnvString("CURON_LLM_BACKEND", fc.LLMBackend),
		DBPath:       getEnvString("CURON_DB_PATH", fc.DBPath),
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", fc.OTelEndpoint),
		GinMode:      getEnvString("GIN_MODE", fc.GinMode),
	}

	slog.Info("Starting curon",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"db_path", cfg.DBPath,
	)

	svc, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfigFile parses the YAML config file at path. A missing path
// yields a zero config; a present but unreadable file is fatal so a
// typoed mount fails loudly instead of silently using defaults.
func loadConfigFile(path string) fileConfig {
	var fc fileConfig
	if path == "" {
		return fc
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		log.Fatalf("Failed to parse config file %s: %v", path, err)
	}
	return fc
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
