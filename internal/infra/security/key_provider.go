package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrKeyNotFound       = errors.New("key not found")
	ErrNoSigningKey      = errors.New("no private key found for signing")
	errUnsupportedKeyPEM = errors.New("unsupported key material")
)

// KeyProvider defines the interface for providing RSA signing and verification keys.
type KeyProvider interface {
	SigningKey() (kid string, key *rsa.PrivateKey, err error)
	VerificationKey(kid string) (*rsa.PublicKey, error)
	VerificationKeys() map[string]*rsa.PublicKey
}

// FileKeyProvider loads PEM encoded RSA keys from a directory. The file name without
// extension is the key id; the lexically first private key signs new tokens.
type FileKeyProvider struct {
	keys       map[string]*rsa.PublicKey
	signingKID string
	signingKey *rsa.PrivateKey
}

// NewFileKeyProvider reads every key file in keyDir.
func NewFileKeyProvider(keyDir string) (*FileKeyProvider, error) {
	files, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if !file.IsDir() {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	provider := &FileKeyProvider{
		keys: make(map[string]*rsa.PublicKey),
	}

	for _, name := range names {
		path := filepath.Join(keyDir, name)
		keyData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
		}

		kid := strings.TrimSuffix(name, filepath.Ext(name))
		private, public, err := parseRSAKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("parse key file %s: %w", path, err)
		}

		if private != nil && provider.signingKey == nil {
			provider.signingKey = private
			provider.signingKID = kid
		}
		provider.keys[kid] = public
	}

	if provider.signingKey == nil {
		return nil, ErrNoSigningKey
	}

	return provider, nil
}

func parseRSAKey(data []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, nil, errors.New("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, &key.PublicKey, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, &rsaKey.PublicKey, nil
		}
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return nil, key, nil
	}
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if rsaKey, ok := key.(*rsa.PublicKey); ok {
			return nil, rsaKey, nil
		}
	}

	return nil, nil, errUnsupportedKeyPEM
}

// SigningKey returns the private key used for new tokens and its id.
func (p *FileKeyProvider) SigningKey() (string, *rsa.PrivateKey, error) {
	if p.signingKey == nil {
		return "", nil, ErrNoSigningKey
	}
	return p.signingKID, p.signingKey, nil
}

// VerificationKey returns the public key registered under kid.
func (p *FileKeyProvider) VerificationKey(kid string) (*rsa.PublicKey, error) {
	key, ok := p.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// VerificationKeys returns a copy of all public keys by id.
func (p *FileKeyProvider) VerificationKeys() map[string]*rsa.PublicKey {
	out := make(map[string]*rsa.PublicKey, len(p.keys))
	for kid, key := range p.keys {
		out[kid] = key
	}
	return out
}
