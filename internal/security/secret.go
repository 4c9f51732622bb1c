package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

const (
	SecretKeyLength = 48

	secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
	errEmptySecret    = errors.New("secret file is empty")
)

// RandomString draws length characters uniformly from alphabet using
// crypto/rand.
func RandomString(length int, alphabet string) (string, error) {
	switch {
	case length < 0:
		return "", errNegativeLength
	case length == 0:
		return "", nil
	case alphabet == "":
		return "", errEmptyAlphabet
	}

	limit := big.NewInt(int64(len(alphabet)))
	var builder strings.Builder
	builder.Grow(length)
	for range length {
		position, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[position.Int64()])
	}
	return builder.String(), nil
}

// LoadOrCreateSecret returns the key stored at path. On first use it writes
// a fresh random key there, readable by the owner only.
func LoadOrCreateSecret(path string) (string, error) {
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(content))
		if secret == "" {
			return "", fmt.Errorf("%s: %w", path, errEmptySecret)
		}
		return secret, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read secret file: %w", err)
	}

	secret, err := RandomString(SecretKeyLength, secretAlphabet)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create secret directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return LoadOrCreateSecret(path)
	}
	if err != nil {
		return "", fmt.Errorf("create secret file: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(secret + "\n"); err != nil {
		return "", fmt.Errorf("write secret file: %w", err)
	}
	return secret, nil
}
