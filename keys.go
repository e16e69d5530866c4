package drawchat

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// KeySizeBits is the size of the P-256 group order, and so of r and s.
const KeySizeBits = 256

// Signer is the signing provider. Sign returns an ASN.1 DER signature over
// the SHA-256 digest of message.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// KeyPair is the caller's P-256 key pair. PublicKey is the base64-url-safe
// SPKI body of the public PEM, as the service expects it.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  string
}

// ECDSASigner signs with an ECDSA P-256 private key.
type ECDSASigner struct {
	key *ecdsa.PrivateKey
}

func NewECDSASigner(key *ecdsa.PrivateKey) (*ECDSASigner, error) {
	if key == nil {
		return nil, errors.New("no private key configured")
	}
	if key.Curve != elliptic.P256() {
		return nil, ErrKeyType
	}
	return &ECDSASigner{key: key}, nil
}

func (s *ECDSASigner) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	return ecdsa.SignASN1(rand.Reader, s.key, hash[:])
}

// LoadKeyPairFiles reads a private and public PEM file and parses them with
// LoadKeyPair.
func LoadKeyPairFiles(privatePath, publicPath string) (*KeyPair, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %q: %w", privatePath, err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key %q: %w", publicPath, err)
	}
	return LoadKeyPair(privatePEM, publicPEM)
}

// LoadKeyPair parses a PEM private key (SEC 1 or PKCS#8) and the matching
// PEM public key.
func LoadKeyPair(privatePEM, publicPEM []byte) (*KeyPair, error) {
	key, err := parsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(publicPEM)
	if block == nil {
		return nil, errors.New("public key: no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok || ecdsaPub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("public key: %w", ErrKeyType)
	}
	if !ecdsaPub.Equal(&key.PublicKey) {
		return nil, errors.New("public key does not match private key")
	}

	return &KeyPair{
		PrivateKey: key,
		PublicKey:  PublicKeyString(publicPEM),
	}, nil
}

// Signer returns the signing provider for the pair.
func (k *KeyPair) Signer() (Signer, error) {
	return NewECDSASigner(k.PrivateKey)
}

// PublicKeyString strips the PEM armor lines and line breaks and returns the
// url-safe form of the remaining base64 body.
func PublicKeyString(publicPEM []byte) string {
	var body strings.Builder
	for _, line := range strings.Split(string(publicPEM), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		body.WriteString(line)
	}
	return urlSafe(body.String())
}

func parsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("private key: no PEM block found")
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		parsed, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("private key: %w", err)
		}
		key = parsed
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("private key: %w", err)
		}
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key: %w", ErrKeyType)
		}
		key = ecKey
	default:
		return nil, fmt.Errorf("private key: unsupported PEM type %q", block.Type)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("private key: %w, got %s", ErrKeyType, key.Curve.Params().Name)
	}
	return key, nil
}

// urlSafe turns standard base64 into the url-safe alphabet without padding.
func urlSafe(b64 string) string {
	b64 = strings.NewReplacer("+", "-", "/", "_").Replace(b64)
	return strings.TrimRight(b64, "=")
}
