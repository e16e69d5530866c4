package drawchat

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPermissions = errors.New("invalid permissions string")
	ErrInvalidSignature   = errors.New("signature verification failed")
	ErrKeyType            = errors.New("invalid key type, expected ECDSA P-256")
	ErrSessionClosed      = errors.New("session closed")
)

// CodecError reports malformed signature wire bytes.
type CodecError struct {
	Reason string
}

func (e *CodecError) Error() string {
	return "signature codec: " + e.Reason
}

func codecErrorf(format string, args ...interface{}) error {
	return &CodecError{Reason: fmt.Sprintf(format, args...)}
}

// SigningError wraps a failure of the signing provider. It is never retried:
// a signer that fails once has a broken or wrong-type key.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// TokenGenerationExhausted is returned when no candidate within the attempt
// ceiling satisfied the validator set.
type TokenGenerationExhausted struct {
	Seed     string
	Prefix   string
	Attempts int
}

func (e *TokenGenerationExhausted) Error() string {
	return fmt.Sprintf("room token generation exhausted after %d attempts (seed %q, prefix %q)",
		e.Attempts, e.Seed, e.Prefix)
}

// ChallengeUnsolved is returned when the solver hits its configured bound.
type ChallengeUnsolved struct {
	Challenge  string
	Difficulty string
	Attempts   int
}

func (e *ChallengeUnsolved) Error() string {
	return fmt.Sprintf("challenge %q unsolved after %d attempts (difficulty %q)",
		e.Challenge, e.Attempts, e.Difficulty)
}
