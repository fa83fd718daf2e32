// Package logging wires log/slog with the console and JSON handlers used by
// the daemon and CLI.
//
// New builds a logger from explicit options; NewFromConfig derives output
// paths and levels from application configuration, fanning output to stdout
// and the log file. The attr helpers keep call sites terse and consistent.
package logging
