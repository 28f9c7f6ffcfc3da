// Package app wires Snuggle's dependencies for the CLI and the worker.
//
// It opens the primary store selected by configuration (memory, SQLite or
// PostgreSQL), optionally puts the Redis cache in front of engagement state,
// builds the event bus and subscribes the handlers that feature flags allow,
// and exposes the command services and query handlers through App.
package app
