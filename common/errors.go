// Package common provides shared constants, types, and utilities
// used across the VPN connector.
package common

import "errors"

// Sentinel errors for VPN connection operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Lifecycle errors.
	ErrAlreadyConnecting = errors.New("a connection attempt is already in flight")
	ErrNotConnected      = errors.New("no active connection")
	ErrTimeout           = errors.New("operation timed out")
	ErrCancelled         = errors.New("operation cancelled")
	ErrConflict          = errors.New("conflicting connection found")

	// Backend errors.
	ErrBackendSetup    = errors.New("backend setup failed")
	ErrBackendTeardown = errors.New("backend teardown failed")
	ErrMissingBackend  = errors.New("no such backend")
	ErrMissingProtocol = errors.New("protocol not supported by backend")

	// Network policy errors.
	ErrKillSwitchApply     = errors.New("failed to apply kill switch policy")
	ErrLeakProtectionApply = errors.New("failed to apply leak protection")

	// Persistence errors.
	ErrPersistenceWrite = errors.New("failed to persist connection parameters")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrCredentialStorage   = errors.New("failed to store credentials")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
