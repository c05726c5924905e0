// Package container reads and writes saffire bytecode containers: a fixed
// header, a compressed bytecode block and an optional trailing signature.
package container

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/saffire/bytecode"
	"github.com/chazu/saffire/compress"
	"github.com/chazu/saffire/signing"
)

var log = commonlog.GetLogger("saffire.container")

// KeyResolver resolves named configuration values such as "gpg.key".
type KeyResolver interface {
	Get(name string) (string, bool)
}

// Options binds a Store to its collaborators. Zero values select the
// defaults: zstd compression, ".sfc"/".sf" extensions and permissive
// signature handling.
type Options struct {
	Codec    compress.Codec
	Signer   signing.Signer
	Verifier signing.Verifier
	Keys     KeyResolver

	Extension       string
	SourceExtension string

	// RequireSignature makes a verifying Load reject unsigned containers.
	RequireSignature bool

	// MaxPayload caps the uncompressed length a header may declare.
	// Zero selects MaxPayloadSize.
	MaxPayload uint64

	Logger commonlog.Logger
}

// Store saves and loads containers.
type Store struct {
	opts Options
	log  commonlog.Logger
}

// NewStore returns a store using opts.
func NewStore(opts Options) *Store {
	if opts.Codec == nil {
		opts.Codec = compress.Default()
	}
	if opts.MaxPayload == 0 {
		opts.MaxPayload = MaxPayloadSize
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.SourceExtension == "" {
		opts.SourceExtension = DefaultSourceExtension
	}
	l := opts.Logger
	if l == nil {
		l = log
	}
	return &Store{opts: opts, log: l}
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

// Save marshals and compresses bc and writes it to dst. The header records
// the modification time of src (zero when src cannot be stat'ed). Save never
// signs.
//
// Marshal and compression failures are fatal. A destination that cannot be
// created is reported as a plain error.
func (s *Store) Save(dst, src string, bc *bytecode.Bytecode) error {
	raw, err := bytecode.Marshal(bc)
	if err != nil {
		return fatal(dst, fmt.Errorf("%w: %v", ErrUnmarshal, err))
	}
	if uint64(len(raw)) > s.opts.MaxPayload {
		return fatal(dst, fmt.Errorf("%w: %d bytes exceeds the limit of %d", ErrSizeMismatch, len(raw), s.opts.MaxPayload))
	}
	packed, err := s.opts.Codec.Compress(raw)
	if err != nil {
		return fatal(dst, fmt.Errorf("error while compressing data: %w", err))
	}

	h := Header{
		BytecodeOffset:  HeaderSize,
		BytecodeLen:     uint64(len(packed)),
		UncompressedLen: uint64(len(raw)),
	}
	h.setCodec(s.opts.Codec.ID())
	if fi, err := os.Stat(src); err == nil {
		h.Timestamp = fi.ModTime().Unix()
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dst, err)
	}
	if _, err := f.Write(append(h.encode(), packed...)); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot write %s: %w", dst, err)
	}

	s.log.Debugf("saved %s: %d bytes, %d compressed with %s", dst, len(raw), len(packed), s.opts.Codec.Name())
	return nil
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// Load reads the container at path. When verify is set and the container is
// signed, the signature must validate against the decompressed payload.
// A signature that is present but not verified only produces a warning.
//
// Every failure is fatal; a corrupt container is never partially accepted.
// On success SourceFilename holds the absolute path of the matching source
// file.
func (s *Store) Load(path string, verify bool) (*bytecode.Bytecode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fatal(path, err)
	}
	h, err := ParseHeader(data)
	if err != nil {
		return nil, fatal(path, err)
	}

	raw, err := s.payload(path, h, data)
	if err != nil {
		return nil, err
	}

	switch {
	case h.Signed() && !verify:
		s.log.Warningf("%s: a signature is present, but verification is disabled", path)
	case h.Signed():
		sig, err := block(data, h.SignatureOffset, h.SignatureLen)
		if err != nil {
			return nil, fatal(path, fmt.Errorf("signature: %w", err))
		}
		if s.opts.Verifier == nil {
			return nil, fatal(path, ErrNoVerifier)
		}
		if err := s.opts.Verifier.Verify(raw, sig); err != nil {
			return nil, fatal(path, fmt.Errorf("%w: %v", ErrBadSignature, err))
		}
		s.log.Debugf("%s: signature verified", path)
	case verify && s.opts.RequireSignature:
		return nil, fatal(path, ErrUnsigned)
	case verify:
		s.log.Noticef("%s: verification requested but the bytecode is not signed", path)
	}

	bc, err := bytecode.Unmarshal(raw)
	if err != nil {
		return nil, fatal(path, fmt.Errorf("%w: %v", ErrUnmarshal, err))
	}
	bc.SourceFilename = SourcePath(path, s.opts.Extension, s.opts.SourceExtension)
	return bc, nil
}

// payload extracts, decompresses and size-checks the bytecode block.
func (s *Store) payload(path string, h *Header, data []byte) ([]byte, error) {
	packed, err := block(data, h.BytecodeOffset, h.BytecodeLen)
	if err != nil {
		return nil, fatal(path, fmt.Errorf("bytecode: %w", err))
	}
	codec, err := compress.ByID(h.Codec())
	if err != nil {
		return nil, fatal(path, fmt.Errorf("%w: %v", ErrDecompress, err))
	}
	if h.UncompressedLen > s.opts.MaxPayload || h.UncompressedLen > math.MaxInt {
		return nil, fatal(path, fmt.Errorf("%w: header declares %d uncompressed bytes, limit %d", ErrSizeMismatch, h.UncompressedLen, s.opts.MaxPayload))
	}
	raw, err := codec.Decompress(packed, int(h.UncompressedLen))
	if err != nil {
		return nil, fatal(path, fmt.Errorf("%w: %v", ErrDecompress, err))
	}
	if uint64(len(raw)) != h.UncompressedLen {
		return nil, fatal(path, fmt.Errorf("%w: header says %d, got %d", ErrSizeMismatch, h.UncompressedLen, len(raw)))
	}
	return raw, nil
}

func block(data []byte, offset, length uint64) ([]byte, error) {
	size := uint64(len(data))
	if offset > size || length > size-offset {
		return nil, fmt.Errorf("%w: %d+%d > %d", ErrTruncated, offset, length, size)
	}
	return data[offset : offset+length], nil
}

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

// AddSignature signs the container at path with keyID, or with the
// configured "gpg.key" when keyID is empty. Signing an already signed
// container is a no-op.
//
// A container that cannot be opened is a plain error. An unresolvable key or
// a corrupt payload is fatal.
func (s *Store) AddSignature(path, keyID string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	h, err := ParseHeader(data)
	if err != nil {
		return fatal(path, err)
	}
	if h.Signed() {
		return nil
	}

	key := keyID
	if key == "" && s.opts.Keys != nil {
		key, _ = s.opts.Keys.Get("gpg.key")
	}
	if key == "" || s.opts.Signer == nil {
		return fatal(path, fmt.Errorf("%w: please set gpg.key in your configuration", ErrNoKey))
	}

	raw, err := s.payload(path, h, data)
	if err != nil {
		return err
	}
	sig, err := s.opts.Signer.Sign(key, raw)
	if err != nil {
		if errors.Is(err, signing.ErrNoKey) {
			return fatal(path, fmt.Errorf("%w: %v", ErrNoKey, err))
		}
		return fatal(path, err)
	}

	// Signature first, header last.
	offset := uint64(len(data))
	if _, err := f.WriteAt(sig, int64(offset)); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	h.setSignature(offset, uint64(len(sig)))
	if _, err := f.WriteAt(h.encode(), 0); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	s.log.Infof("%s: signed with key %s", path, key)
	return nil
}

// RemoveSignature strips the signature from the container at path. Removing
// the signature of an unsigned container is a no-op.
//
// The signature is assumed to be the final block of the file: the file is
// truncated at the former signature offset.
func RemoveSignature(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return fatal(path, fmt.Errorf("%w: %v", ErrTruncatedHeader, err))
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return fatal(path, err)
	}
	if !h.Signed() {
		return nil
	}

	sigpos := h.SignatureOffset
	h.setSignature(0, 0)
	if _, err := f.WriteAt(h.encode(), 0); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := f.Truncate(int64(sigpos)); err != nil {
		return fmt.Errorf("cannot truncate %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// IsValidFile reports whether path is readable and carries the container
// magic.
func IsValidFile(path string) bool {
	_, err := ReadHeader(path)
	return err == nil
}

// IsSigned reports whether the container at path carries a signature.
func IsSigned(path string) bool {
	h, err := ReadHeader(path)
	return err == nil && h.Signed()
}

// GetTimestamp returns the source modification time recorded in the header,
// or 0 when the file cannot be read.
func GetTimestamp(path string) int64 {
	h, err := ReadHeader(path)
	if err != nil {
		return 0
	}
	return h.Timestamp
}
