// Package logger provides structured logging functionality for the pipeline.
//
// It utilizes Go's standard library log/slog package to implement structured JSON
// (or text) logging with configurable log levels, optionally written to a
// size-rotated file.
package logger
