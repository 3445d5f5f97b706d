package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"lspedit/logger"
	"lspedit/types"
)

type Config struct {
	LogLevel         string `json:"log_level"`          // trace, debug, info, warn, error
	OffsetEncoding   string `json:"offset_encoding"`    // used when a request passes no encoding
	ForceLineRebuild bool   `json:"force_line_rebuild"` // never use nvim_buf_set_text
}

type ServerMode string

const (
	ModeStdio  ServerMode = "stdio"
	ModeListen ServerMode = "listen"
)

// Setup logger to log to a file in the same directory as the executable
// Caller must defer logger.Close()
func setupLogger(logLevel string) *logger.LimitedLogger {
	execPath, err := os.Executable()
	if err != nil {
		log.Fatalf("error getting executable path: %v", err)
	}
	execDir := filepath.Dir(execPath)
	logPath := filepath.Join(execDir, "lspedit.log")

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}

	level := logger.ParseLogLevel(logLevel)
	limitedLogger := logger.NewLimitedLogger(f, level)
	log.SetOutput(limitedLogger)
	return limitedLogger
}

// parseConfig decodes the LSPEDIT_CONFIG value. An empty value yields the
// defaults.
func parseConfig(raw string) (Config, error) {
	config := Config{LogLevel: "info"}
	if raw == "" {
		return config, nil
	}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if _, err := types.ParseOffsetEncoding(config.OffsetEncoding); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// isTerminal reports whether f is an interactive terminal
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseArgs returns the serving mode and, in listen mode, the socket path
func parseArgs(args []string) (ServerMode, string, error) {
	if len(args) == 0 {
		return ModeStdio, "", nil
	}
	switch args[0] {
	case "--listen":
		if len(args) < 2 || args[1] == "" {
			return "", "", fmt.Errorf("--listen requires a socket path")
		}
		return ModeListen, args[1], nil
	case "--stdio":
		return ModeStdio, "", nil
	default:
		return "", "", fmt.Errorf("unknown argument %q", args[0])
	}
}

func main() {
	mode, socketPath, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("usage: lspedit [--stdio | --listen <socket>]: %v", err)
	}

	if mode == ModeStdio && isTerminal(os.Stdin) {
		log.Fatalf("lspedit speaks msgpack-rpc on stdio; start it from Neovim with jobstart(cmd, {rpc = true})")
	}

	config, err := parseConfig(os.Getenv("LSPEDIT_CONFIG"))
	if err != nil {
		log.Fatalf("%v", err)
	}

	limitedLogger := setupLogger(config.LogLevel)
	defer limitedLogger.Close()
	logger.Info("config: %+v", config)

	server, err := NewServer(config)
	if err != nil {
		logger.Fatal("error creating server: %v", err)
	}

	switch mode {
	case ModeListen:
		err = server.Listen(socketPath)
	default:
		err = server.ServeStdio()
	}
	if err != nil {
		logger.Fatal("error serving: %v", err)
	}
}
