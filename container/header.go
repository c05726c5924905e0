package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/saffire/compress"
)

// ---------------------------------------------------------------------------
// Container Format Constants
// ---------------------------------------------------------------------------

// Magic identifies a saffire bytecode container.
var Magic = [4]byte{'S', 'F', 'C', 'B'}

// HeaderSize is the fixed header size in bytes.
// magic(4) + flags(4) + timestamp(8) + bytecodeOffset(8) + bytecodeLen(8) +
// uncompressedLen(8) + signatureOffset(8) + signatureLen(8) + reserved(4) = 60
const HeaderSize = 60

// MaxPayloadSize bounds the uncompressed bytecode length a header may
// declare unless Options.MaxPayload says otherwise.
const MaxPayloadSize = 1 << 30

// Container flags
const (
	FlagSigned uint32 = 1 << 0

	codecShift        = 4
	codecMask  uint32 = 0xf << codecShift
)

// Header is the fixed-size container header. All integers are little-endian.
type Header struct {
	Flags           uint32
	Timestamp       int64
	BytecodeOffset  uint64
	BytecodeLen     uint64
	UncompressedLen uint64
	SignatureOffset uint64
	SignatureLen    uint64
}

// Signed reports whether the signed flag is set and a signature block is
// present.
func (h *Header) Signed() bool {
	return h.Flags&FlagSigned != 0 && h.SignatureOffset != 0
}

// Codec returns the id of the codec that compressed the payload.
func (h *Header) Codec() compress.ID {
	return compress.ID((h.Flags & codecMask) >> codecShift)
}

func (h *Header) setCodec(id compress.ID) {
	h.Flags = h.Flags&^codecMask | (uint32(id)<<codecShift)&codecMask
}

func (h *Header) setSignature(offset, length uint64) {
	h.SignatureOffset = offset
	h.SignatureLen = length
	if offset != 0 {
		h.Flags |= FlagSigned
	} else {
		h.Flags &^= FlagSigned
	}
}

// Time returns the source modification time recorded in the header.
func (h *Header) Time() time.Time {
	return time.Unix(h.Timestamp, 0)
}

// MarshalBinary encodes the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	return h.encode(), nil
}

func (h *Header) encode() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, Magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Flags)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Timestamp))
	buf = binary.LittleEndian.AppendUint64(buf, h.BytecodeOffset)
	buf = binary.LittleEndian.AppendUint64(buf, h.BytecodeLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.UncompressedLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.SignatureOffset)
	buf = binary.LittleEndian.AppendUint64(buf, h.SignatureLen)
	// reserved, always zero
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	return buf
}

// ParseHeader decodes and validates a header.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncatedHeader
	}
	if [4]byte(data[:4]) != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:4])
	}
	le := binary.LittleEndian
	return &Header{
		Flags:           le.Uint32(data[4:]),
		Timestamp:       int64(le.Uint64(data[8:])),
		BytecodeOffset:  le.Uint64(data[16:]),
		BytecodeLen:     le.Uint64(data[24:]),
		UncompressedLen: le.Uint64(data[32:]),
		SignatureOffset: le.Uint64(data[40:]),
		SignatureLen:    le.Uint64(data[48:]),
	}, nil
}

// ReadHeader reads the header of the container at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	return ParseHeader(buf)
}

// String renders the header for diagnostics.
func (h *Header) String() string {
	codec := fmt.Sprintf("codec %d", h.Codec())
	if c, err := compress.ByID(h.Codec()); err == nil {
		codec = c.Name()
	}
	return fmt.Sprintf("flags=%#x signed=%t compression=%s timestamp=%s bytecode=%d+%d (%d uncompressed) signature=%d+%d",
		h.Flags, h.Signed(), codec, h.Time().UTC().Format(time.RFC3339),
		h.BytecodeOffset, h.BytecodeLen, h.UncompressedLen, h.SignatureOffset, h.SignatureLen)
}
