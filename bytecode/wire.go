package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the version of the marshalled frame layout.
const FormatVersion = 1

var ErrVersion = errors.New("bytecode: unsupported format version")

// cborEncMode uses canonical mode so equal frames marshal to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type envelope struct {
	Version uint16    `cbor:"1,keyasint"`
	Frame   *Bytecode `cbor:"2,keyasint"`
}

// Marshal serializes a frame to CBOR bytes.
func Marshal(bc *Bytecode) ([]byte, error) {
	if bc == nil {
		return nil, errors.New("bytecode: marshal nil frame")
	}
	return cborEncMode.Marshal(envelope{Version: FormatVersion, Frame: bc})
}

// Unmarshal deserializes a frame from CBOR bytes.
func Unmarshal(data []byte) (*Bytecode, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal frame: %w", err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, env.Version)
	}
	if env.Frame == nil {
		return nil, errors.New("bytecode: unmarshal frame: empty envelope")
	}
	return env.Frame, nil
}
