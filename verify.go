package drawchat

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// VerifyCredential checks the credential signature, and the config
// signature when config data is present, against the embedded public key.
func VerifyCredential(c *Credential) error {
	pub, err := parsePublicKey(c.PublicKey)
	if err != nil {
		return err
	}
	if err := verifyRaw(pub, c.Message(), c.Signature); err != nil {
		return err
	}
	if c.ConfigData == "" && c.ConfigSignature == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(c.ConfigData)
	if err != nil {
		return fmt.Errorf("decoding config data: %w", err)
	}
	return verifyRaw(pub, data, c.ConfigSignature)
}

func parsePublicKey(publicKey string) (*ecdsa.PublicKey, error) {
	der, err := base64.RawURLEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok || ecdsaPub.Curve != elliptic.P256() {
		return nil, ErrKeyType
	}
	return ecdsaPub, nil
}

func verifyRaw(pub *ecdsa.PublicKey, message []byte, signature string) error {
	raw, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	if len(raw) != 2*KeySizeBits/8 {
		return fmt.Errorf("%w: signature is %d bytes", ErrInvalidSignature, len(raw))
	}
	der, err := EncodeSignature(raw)
	if err != nil {
		return err
	}
	hash := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(pub, hash[:], der) {
		return ErrInvalidSignature
	}
	return nil
}
