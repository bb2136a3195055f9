// Package store persists modules, sessions, background jobs, and assistant
// conversation history in SQLite.
package store
