// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Vault state sentinels.
var (
	// ErrVaultLocked indicates an operation that needs an open vault connection was called while locked.
	ErrVaultLocked = errors.New("vault is locked")

	// ErrVaultExists indicates an attempt to create a vault where one already exists.
	ErrVaultExists = errors.New("vault already exists")

	// ErrVaultNotFound indicates the encrypted database file is absent.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrInvalidKey indicates the database key did not decrypt the vault.
	// Callers at credential-check points turn it into a boolean result.
	ErrInvalidKey = errors.New("invalid vault key")

	// ErrSaltMissing indicates the key-derivation salt file could not be read.
	ErrSaltMissing = errors.New("salt file missing")

	// ErrCorrupted indicates an auxiliary vault file has an invalid layout.
	ErrCorrupted = errors.New("vault file corrupted")
)

// Secret registry sentinels.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoFilePath indicates activation of a secret that has no target file path.
	ErrNoFilePath = errors.New("secret has no file_path set")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation")
)

// Access sentinels.
var (
	// ErrUnauthorized indicates a missing or invalid session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary unlock lockout after repeated failures.
	ErrRateLimited = errors.New("rate limited")
)
