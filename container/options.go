package container

import (
	"fmt"

	"github.com/chazu/saffire/compress"
	"github.com/chazu/saffire/config"
	"github.com/chazu/saffire/signing"
)

// OptionsFromConfig builds store options from a configuration: the codec
// named by bytecode.compression, the extensions, the signature policy and
// the keyrings named in the gpg section.
func OptionsFromConfig(c *config.Config) (Options, error) {
	if c == nil {
		c = config.Default()
	}
	codec, err := compress.ByName(c.Bytecode.Compression)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Codec:            codec,
		Keys:             c,
		Extension:        c.Bytecode.Extension,
		SourceExtension:  c.Bytecode.SourceExtension,
		RequireSignature: c.Bytecode.RequireSignature,
	}

	var ring *signing.Keyring
	for _, p := range []string{c.GPG.SecretKeyring, c.GPG.PublicKeyring} {
		if p == "" {
			continue
		}
		k, err := signing.LoadKeyring(c.ResolvePath(p))
		if err != nil {
			return Options{}, fmt.Errorf("gpg keyring: %w", err)
		}
		if ring == nil {
			ring = k
		} else {
			ring = ring.Merge(k)
		}
	}
	if ring != nil {
		opts.Signer = ring
		opts.Verifier = ring
	}
	return opts, nil
}
