package drawchat

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/klauspost/compress/zlib"
	log "github.com/sirupsen/logrus"
)

// Credential is the signed parameter set that opens a board. ConfigData and
// ConfigSignature are set together or not at all.
type Credential struct {
	PublicKey       string      `json:"public_key"`
	Signature       string      `json:"signature"`
	BoardSeed       string      `json:"bseed"`
	Username        string      `json:"username"`
	Permissions     Permissions `json:"permissions"`
	ConfigData      string      `json:"config_data,omitempty"`
	ConfigSignature string      `json:"config_signature,omitempty"`

	// Config is the plaintext board configuration, kept for the session
	// setup message.
	Config interface{} `json:"-"`
}

// Compressor is the transform applied to the serialized board config
// before it is signed.
type Compressor func(data []byte) ([]byte, error)

// Deflate compresses data into a zlib stream.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CredentialBuilder signs credentials with one key pair.
type CredentialBuilder struct {
	signer    Signer
	publicKey string
	compress  Compressor
	logger    *log.Entry
}

// NewCredentialBuilder returns a builder signing with keys.
func NewCredentialBuilder(keys *KeyPair) (*CredentialBuilder, error) {
	signer, err := keys.Signer()
	if err != nil {
		return nil, err
	}
	return NewCredentialBuilderWithSigner(signer, keys.PublicKey), nil
}

// NewCredentialBuilderWithSigner returns a builder around an arbitrary
// signing provider; publicKey is sent verbatim.
func NewCredentialBuilderWithSigner(signer Signer, publicKey string) *CredentialBuilder {
	return &CredentialBuilder{
		signer:    signer,
		publicKey: publicKey,
		compress:  Deflate,
		logger:    log.WithField("component", "credential"),
	}
}

func (b *CredentialBuilder) SetLogger(logger *log.Entry) {
	b.logger = logger
}

// SetCompressor replaces the config transform.
func (b *CredentialBuilder) SetCompressor(compress Compressor) {
	b.compress = compress
}

// Build signs a credential for username on the board identified by
// boardUniqueKey. A nil config leaves ConfigData and ConfigSignature unset.
func (b *CredentialBuilder) Build(boardUniqueKey, username string, permissions Permissions, config interface{}) (*Credential, error) {
	if err := permissions.Validate(); err != nil {
		return nil, err
	}

	cred := &Credential{
		PublicKey:   b.publicKey,
		BoardSeed:   BoardSeed(boardUniqueKey),
		Username:    EscapeUsername(username),
		Permissions: permissions,
	}

	sig, err := b.sign(cred.Message())
	if err != nil {
		b.logger.WithError(err).Errorln("Can't sign credential")
		return nil, err
	}
	cred.Signature = sig

	if config != nil {
		data, err := json.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("serializing board config: %w", err)
		}
		compressed, err := b.compress(data)
		if err != nil {
			return nil, fmt.Errorf("compressing board config: %w", err)
		}
		configSig, err := b.sign(compressed)
		if err != nil {
			b.logger.WithError(err).Errorln("Can't sign board config")
			return nil, err
		}
		cred.ConfigData = urlSafe(base64.StdEncoding.EncodeToString(compressed))
		cred.ConfigSignature = configSig
		cred.Config = config
	}

	b.logger.WithFields(log.Fields{"bseed": cred.BoardSeed, "permissions": permissions}).Debugln("Built credential")
	return cred, nil
}

// sign runs the provider and converts its DER output into the url-safe
// fixed-length r||s form.
func (b *CredentialBuilder) sign(message []byte) (string, error) {
	der, err := b.signer.Sign(message)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	raw, err := DecodeSignature(der, KeySizeBits)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return urlSafe(base64.StdEncoding.EncodeToString(raw)), nil
}

// Message is the canonical signed message: bseed|username|permissions.
func (c *Credential) Message() []byte {
	return []byte(c.BoardSeed + "|" + c.Username + "|" + string(c.Permissions))
}

// BoardSeed is the hex SHA-256 of the board's unique key.
func BoardSeed(boardUniqueKey string) string {
	return sha256Hex(boardUniqueKey)
}

// EscapeUsername percent-encodes everything except unreserved characters,
// spaces included.
func EscapeUsername(username string) string {
	return strings.ReplaceAll(url.QueryEscape(username), "+", "%20")
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
