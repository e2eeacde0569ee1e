// Package logging builds the slog logger stack used across the daemon and
// CLI: console and JSON handlers, shared field names, component loggers, and
// a progress sampler that keeps encode-progress logging bounded.
package logging
