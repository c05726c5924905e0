// Package signing produces and checks detached OpenPGP signatures over
// bytecode payloads.
package signing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

var (
	ErrBadSignature = errors.New("signing: signature is invalid")
	ErrNoKey        = errors.New("signing: no usable signing key")
	ErrKeyEncrypted = errors.New("signing: private key is passphrase protected")
)

// Signer produces a detached signature over data using the key identified
// by keyID.
type Signer interface {
	Sign(keyID string, data []byte) ([]byte, error)
}

// Verifier checks a detached signature over data.
type Verifier interface {
	Verify(data, signature []byte) error
}

// Keyring is an OpenPGP key ring usable both as Signer and Verifier.
type Keyring struct {
	entities openpgp.EntityList
}

// NewKeyring wraps already loaded entities.
func NewKeyring(entities ...*openpgp.Entity) *Keyring {
	return &Keyring{entities: entities}
}

// ReadKeyring parses an armored or binary key ring.
func ReadKeyring(r io.Reader) (*Keyring, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("signing: read keyring: %w", err)
	}
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("signing: parse keyring: %w", err)
		}
	}
	return &Keyring{entities: entities}, nil
}

// LoadKeyring reads a key ring file.
func LoadKeyring(path string) (*Keyring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("signing: open keyring: %w", err)
	}
	defer f.Close()
	return ReadKeyring(f)
}

// Merge returns a key ring holding the entities of both rings.
func (k *Keyring) Merge(other *Keyring) *Keyring {
	if other == nil {
		return k
	}
	merged := append(openpgp.EntityList(nil), k.entities...)
	return &Keyring{entities: append(merged, other.entities...)}
}

// Len returns the number of entities.
func (k *Keyring) Len() int {
	return len(k.entities)
}

// Find returns the entity matching keyID. keyID may be a long or short hex
// key id, a fingerprint, or a substring of a user id such as an e-mail
// address.
func (k *Keyring) Find(keyID string) (*openpgp.Entity, bool) {
	want := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(keyID), "0x"))
	if want == "" {
		return nil, false
	}
	for _, e := range k.entities {
		pk := e.PrimaryKey
		if pk == nil {
			continue
		}
		if want == pk.KeyIdString() || want == pk.KeyIdShortString() || want == fmt.Sprintf("%X", pk.Fingerprint) {
			return e, true
		}
	}
	lower := strings.ToLower(strings.TrimSpace(keyID))
	for _, e := range k.entities {
		for name := range e.Identities {
			if strings.Contains(strings.ToLower(name), lower) {
				return e, true
			}
		}
	}
	return nil, false
}

// Sign implements Signer. The signature is binary (not armored).
func (k *Keyring) Sign(keyID string, data []byte) ([]byte, error) {
	e, ok := k.Find(keyID)
	if !ok || e.PrivateKey == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoKey, keyID)
	}
	if e.PrivateKey.Encrypted {
		return nil, fmt.Errorf("%w: %q", ErrKeyEncrypted, keyID)
	}
	var buf bytes.Buffer
	if err := openpgp.DetachSign(&buf, e, bytes.NewReader(data), nil); err != nil {
		return nil, fmt.Errorf("signing: sign: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify implements Verifier.
func (k *Keyring) Verify(data, signature []byte) error {
	if _, err := openpgp.CheckDetachedSignature(k.entities, bytes.NewReader(data), bytes.NewReader(signature), nil); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key generation
// ---------------------------------------------------------------------------

// GenerateKey creates an unprotected signing key.
func GenerateKey(name, email string) (*openpgp.Entity, error) {
	e, err := openpgp.NewEntity(name, "saffire bytecode signing", email, nil)
	if err != nil {
		return nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return e, nil
}

// WriteSecretKey writes the armored private key of e.
func WriteSecretKey(w io.Writer, e *openpgp.Entity) error {
	aw, err := armor.Encode(w, openpgp.PrivateKeyType, nil)
	if err != nil {
		return err
	}
	if err := e.SerializePrivate(aw, nil); err != nil {
		aw.Close()
		return fmt.Errorf("signing: serialize private key: %w", err)
	}
	return aw.Close()
}

// WritePublicKey writes the armored public key of e.
func WritePublicKey(w io.Writer, e *openpgp.Entity) error {
	aw, err := armor.Encode(w, openpgp.PublicKeyType, nil)
	if err != nil {
		return err
	}
	if err := e.Serialize(aw); err != nil {
		aw.Close()
		return fmt.Errorf("signing: serialize public key: %w", err)
	}
	return aw.Close()
}
