// Package common provides shared constants, types, and utilities
// used across the VPN connector.
package common

// CredentialStore defines the interface for credential storage.
// Implementations may use the system keyring, encrypted files, etc.
// The orchestrator never sees passwords or keys directly: connection
// descriptors carry an opaque reference that a backend resolves through
// this interface at setup time.
type CredentialStore interface {
	// Store saves a secret under the given reference.
	Store(ref, secret string) error
	// Get retrieves the secret for a reference.
	Get(ref string) (string, error)
	// Delete removes the secret for a reference.
	Delete(ref string) error
}

// Logger defines the interface for leveled logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...interface{})
	// Info logs an informational message.
	Info(msg string, args ...interface{})
	// Warn logs a warning message.
	Warn(msg string, args ...interface{})
	// Error logs an error message.
	Error(msg string, args ...interface{})
}
