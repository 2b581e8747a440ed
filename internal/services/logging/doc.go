// Package logging wires slog with hot-reloadable handlers.
//
// A single AtomicHandler backs the process-wide logger so config reloads can
// swap the handler chain (console, JSON file, rate-limited telegram sink)
// without replacing the *slog.Logger held by components.
package logging
