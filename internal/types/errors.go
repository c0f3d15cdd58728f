package types

import "errors"

// Wallet error taxonomy. Only the operations that inherently require the
// network may surface these to the caller; backup and sync failures are
// logged and recovered locally.
var (
	// ErrWalletOffline: no mint reachable, recoverable later
	ErrWalletOffline = errors.New("wallet offline")
	// ErrInsufficientBalance: user-correctable
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidToken: malformed or already spent input
	ErrInvalidToken = errors.New("invalid token")
	// ErrMintUnavailable: transient timeout or network failure
	ErrMintUnavailable = errors.New("mint unavailable")
	// ErrDecryptionFailed: corrupt or foreign-key backup record
	ErrDecryptionFailed = errors.New("decryption failed")
)
