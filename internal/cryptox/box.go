// Package cryptox implements the symmetric envelope encryption used for
// stored secrets and files, and the one-way hashing used for passwords,
// security answers and PINs.
package cryptox

import (
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// tokenVersion prefixes every sealed payload so the format can evolve.
const tokenVersion byte = 1

// UndecryptableMarker is what Plaintext.String renders for a value that
// could not be decrypted.
const UndecryptableMarker = "[undecryptable]"

var errMalformed = errors.New("malformed ciphertext")

// Status tells how a text field decryption ended.
type Status int

const (
	// Empty means there was no stored value.
	Empty Status = iota
	// OK means Value holds the decrypted plaintext.
	OK
	// Undecryptable means the token was corrupt, tampered with or sealed
	// under another key. Value is empty and must not be shown as data.
	Undecryptable
)

// Plaintext is the result of DecryptText.
type Plaintext struct {
	Value  string
	Status Status
}

// Valid reports whether Value carries real decrypted data.
func (p Plaintext) Valid() bool { return p.Status == OK }

func (p Plaintext) String() string {
	if p.Status == Undecryptable {
		return UndecryptableMarker
	}
	return p.Value
}

// Box seals and opens data with XChaCha20-Poly1305 under a single master key.
// A Box is safe for concurrent use.
type Box struct {
	aead cipher.AEAD
}

// NewBox builds a Box from a raw 32-byte master key.
func NewBox(key []byte) (*Box, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: encryption key is not set", common.ErrConfig)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfig, err)
	}
	return &Box{aead: aead}, nil
}

// NewBoxFromBase64 decodes a base64 (standard or URL alphabet) master key
// and builds a Box from it.
func NewBoxFromBase64(encoded string) (*Box, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: encryption key is not set", common.ErrConfig)
	}
	key, err := decodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid base64", common.ErrConfig)
	}
	defer common.WipeByteArray(key)
	return NewBox(key)
}

// GenerateKey returns a new random master key, base64 (URL alphabet) encoded.
func GenerateKey() string {
	key := common.GenerateRandByteArray(chacha20poly1305.KeySize)
	defer common.WipeByteArray(key)
	return base64.URLEncoding.EncodeToString(key)
}

func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding, base64.RawURLEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errMalformed
}

func (b *Box) ready() error {
	if b == nil || b.aead == nil {
		return fmt.Errorf("%w: encryption key is not set", common.ErrConfig)
	}
	return nil
}

func (b *Box) seal(plaintext []byte) []byte {
	nonce := common.GenerateRandByteArray(b.aead.NonceSize())
	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+b.aead.Overhead())
	out = append(out, tokenVersion)
	out = append(out, nonce...)
	return b.aead.Seal(out, nonce, plaintext, []byte{tokenVersion})
}

func (b *Box) open(sealed []byte) ([]byte, error) {
	ns := b.aead.NonceSize()
	if len(sealed) < 1+ns+b.aead.Overhead() || sealed[0] != tokenVersion {
		return nil, errMalformed
	}
	nonce := sealed[1 : 1+ns]
	return b.aead.Open(nil, nonce, sealed[1+ns:], []byte{tokenVersion})
}

// EncryptText seals a text field and returns a printable token.
// An empty plaintext means "no value" and yields an empty token.
func (b *Box) EncryptText(plaintext string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	if plaintext == "" {
		return "", nil
	}
	return base64.RawURLEncoding.EncodeToString(b.seal([]byte(plaintext))), nil
}

// DecryptText opens a token produced by EncryptText. It never fails:
// anything that cannot be opened comes back as Undecryptable.
func (b *Box) DecryptText(token string) Plaintext {
	if token == "" {
		return Plaintext{Status: Empty}
	}
	if b.ready() != nil {
		return Plaintext{Status: Undecryptable}
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Plaintext{Status: Undecryptable}
	}
	pt, err := b.open(raw)
	if err != nil {
		return Plaintext{Status: Undecryptable}
	}
	return Plaintext{Value: string(pt), Status: OK}
}

// EncryptBytes seals an arbitrary binary payload. Empty input is allowed.
func (b *Box) EncryptBytes(data []byte) ([]byte, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	return b.seal(data), nil
}

// DecryptBytes opens a payload produced by EncryptBytes. Unlike DecryptText
// it reports failures, wrapped in common.ErrDecryptionFailed.
func (b *Box) DecryptBytes(blob []byte) ([]byte, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	pt, err := b.open(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	if pt == nil {
		pt = []byte{}
	}
	return pt, nil
}
