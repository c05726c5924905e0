package container

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Container Error Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected SFCB")
	ErrTruncatedHeader = errors.New("truncated container header")
	ErrTruncated       = errors.New("container block extends past end of file")
	ErrDecompress      = errors.New("error while decompressing data")
	ErrSizeMismatch    = errors.New("header information does not match the size of the uncompressed data block")
	ErrUnmarshal       = errors.New("could not convert bytecode data")
	ErrBadSignature    = errors.New("the signature for this bytecode is INVALID")
	ErrUnsigned        = errors.New("bytecode is not signed")
	ErrNoKey           = errors.New("cannot find signing key")
	ErrNoVerifier      = errors.New("no signature verifier configured")
)

// IntegrityError marks a fatal failure: the container is corrupt, cannot be
// trusted or cannot be produced. Callers must not use any partial result.
type IntegrityError struct {
	Path string
	Err  error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("bytecode container %s: %v", e.Path, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

func fatal(path string, err error) error {
	return &IntegrityError{Path: path, Err: err}
}

// IsFatal reports whether err is an integrity failure.
func IsFatal(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
