package backup

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealMagic     = "LUASEAL1"
	sealSaltSize  = 16
	sealNonceSize = 24
	sealKeySize   = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var (
	ErrSealedBackup  = errors.New("backup is encrypted and no passphrase is configured")
	ErrBackupOpen    = errors.New("backup could not be decrypted")
	errSealTruncated = errors.New("sealed backup is truncated")
)

// Sealer encrypts backup payloads with a key derived from a passphrase.
// A Sealer without a passphrase passes plaintext through.
type Sealer struct {
	passphrase []byte
}

func NewSealer(passphrase string) *Sealer {
	return &Sealer{passphrase: []byte(passphrase)}
}

func (sealer *Sealer) Enabled() bool {
	return sealer != nil && len(sealer.passphrase) > 0
}

// Seal lays out magic | salt | nonce | secretbox(payload).
func (sealer *Sealer) Seal(payload []byte) ([]byte, error) {
	if !sealer.Enabled() {
		return payload, nil
	}

	var salt [sealSaltSize]byte
	var nonce [sealNonceSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	key := sealer.key(salt[:])

	out := make([]byte, 0, len(sealMagic)+sealSaltSize+sealNonceSize+secretbox.Overhead+len(payload))
	out = append(out, sealMagic...)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, payload, &nonce, &key), nil
}

// Open reverses Seal. Unsealed payloads are returned unchanged.
func (sealer *Sealer) Open(blob []byte) ([]byte, error) {
	if !IsSealed(blob) {
		return blob, nil
	}
	if !sealer.Enabled() {
		return nil, ErrSealedBackup
	}

	rest := blob[len(sealMagic):]
	if len(rest) < sealSaltSize+sealNonceSize+secretbox.Overhead {
		return nil, errSealTruncated
	}
	salt := rest[:sealSaltSize]
	var nonce [sealNonceSize]byte
	copy(nonce[:], rest[sealSaltSize:sealSaltSize+sealNonceSize])
	key := sealer.key(salt)

	plain, ok := secretbox.Open(nil, rest[sealSaltSize+sealNonceSize:], &nonce, &key)
	if !ok {
		return nil, ErrBackupOpen
	}
	return plain, nil
}

func IsSealed(blob []byte) bool {
	return bytes.HasPrefix(blob, []byte(sealMagic))
}

func (sealer *Sealer) key(salt []byte) [sealKeySize]byte {
	var key [sealKeySize]byte
	copy(key[:], argon2.IDKey(sealer.passphrase, salt, argonTime, argonMemory, argonThreads, sealKeySize))
	return key
}
