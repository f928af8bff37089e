package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLog sends logs to a rotating file when debug is set and discards
// them otherwise; the TUI owns the terminal.
func setupLog(debug bool) (func() error, error) {
	log.SetOutput(io.Discard)
	if !debug {
		return func() error { return nil }, nil
	}

	scope := gap.NewScope(gap.User, "ttstudio")
	path, err := scope.LogPath("ttstudio.log")
	if err != nil {
		return nil, fmt.Errorf("unable to find log directory: %w", err)
	}

	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	log.Debug("Logging enabled", "path", path)
	return f.Close, nil
}
