// Package logger provides structured logging built on zerolog.
//
// The package exposes a Logger interface so components can be tested with
// the TestLogger capture implementation, plus a global logger initialized
// once from CLI flags.
//
// Output is pretty-printed to stderr for interactive runs; when a log file
// is configured, JSON lines are appended there as well.
//
// Usage:
//
//	if err := logger.Initialize(logger.Options{Level: "debug"}); err != nil {
//	    return err
//	}
//
//	logger.WithFields(map[string]interface{}{
//	    "model": "example",
//	    "area":  "Timeline",
//	}).Info("Scan started")
package logger
