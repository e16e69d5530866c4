package drawchat

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedValue(first byte, fill byte) []byte {
	v := bytes.Repeat([]byte{fill}, KeySizeBits/8)
	v[0] = first
	return v
}

func TestSignatureRoundTrip(t *testing.T) {
	leadingZeros := fixedValue(0x00, 0x42)
	leadingZeros[1] = 0x00
	leadingZeros[2] = 0x91

	testcases := []struct {
		name string
		r, s []byte
	}{
		{"no padding", fixedValue(0x11, 0x22), fixedValue(0x33, 0x44)},
		{"r high bit", fixedValue(0x80, 0x01), fixedValue(0x7f, 0x01)},
		{"s high bit", fixedValue(0x7f, 0x01), fixedValue(0xff, 0xff)},
		{"both high bit", fixedValue(0xff, 0x00), fixedValue(0x80, 0x00)},
		{"leading zeros with high bit after", leadingZeros, fixedValue(0x01, 0x02)},
		{"zero r", make([]byte, KeySizeBits/8), fixedValue(0x05, 0x06)},
	}
	for _, tcase := range testcases {
		t.Run(tcase.name, func(t *testing.T) {
			raw := append(append([]byte{}, tcase.r...), tcase.s...)
			original := append([]byte{}, raw...)

			der, err := EncodeSignature(raw)
			require.NoError(t, err)
			assert.Equal(t, original, raw, "encode must not touch its input")

			decoded, err := DecodeSignature(der, KeySizeBits)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

func TestEncodeSignaturePadding(t *testing.T) {
	raw := append(fixedValue(0x80, 0x00), fixedValue(0x01, 0x00)...)
	der, err := EncodeSignature(raw)
	require.NoError(t, err)

	// SEQUENCE { INTEGER 33 bytes with sign pad, INTEGER 32 bytes }
	require.Equal(t, 2+2+33+2+32, len(der))
	assert.Equal(t, byte(0x30), der[0])
	assert.Equal(t, byte(len(der)-2), der[1])
	assert.Equal(t, []byte{0x02, 33, 0x00, 0x80}, der[2:6])
	assert.Equal(t, []byte{0x02, 32, 0x01}, der[37:40])
}

func TestSignatureMatchesStandardLibrary(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		hash := sha256.Sum256([]byte{byte(i)})
		der, err := ecdsa.SignASN1(rand.Reader, key, hash[:])
		require.NoError(t, err)

		raw, err := DecodeSignature(der, KeySizeBits)
		require.NoError(t, err)
		require.Len(t, raw, 64)

		var sig struct{ R, S *big.Int }
		_, err = asn1.Unmarshal(der, &sig)
		require.NoError(t, err)
		assert.Equal(t, 0, sig.R.Cmp(new(big.Int).SetBytes(raw[:32])))
		assert.Equal(t, 0, sig.S.Cmp(new(big.Int).SetBytes(raw[32:])))

		reencoded, err := EncodeSignature(raw)
		require.NoError(t, err)
		assert.Equal(t, der, reencoded)
		assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, hash[:], reencoded))
	}
}

func TestDecodeSignatureMalformed(t *testing.T) {
	valid, err := EncodeSignature(append(fixedValue(0x81, 0x01), fixedValue(0x02, 0x03)...))
	require.NoError(t, err)

	testcases := []struct {
		name string
		der  []byte
	}{
		{"empty", nil},
		{"truncated header", valid[:1]},
		{"truncated body", valid[:len(valid)-1]},
		{"wrong outer tag", append([]byte{0x31}, valid[1:]...)},
		{"wrong integer tag", append(append([]byte{}, valid[:2]...), append([]byte{0x04}, valid[3:]...)...)},
		{"length beyond buffer", []byte{0x30, 0x06, 0x02, 0x10, 0x01}},
		{"long form length", []byte{0x30, 0x81, 0x02}},
		{"trailing bytes", append(append([]byte{}, valid...), 0x00)},
		{"missing s", []byte{0x30, 0x03, 0x02, 0x01, 0x01}},
		{"integer too long", append([]byte{0x30, 0x26, 0x02, 0x21}, append(bytes.Repeat([]byte{0x01}, 33), 0x02, 0x01, 0x01)...)},
	}
	for _, tcase := range testcases {
		t.Run(tcase.name, func(t *testing.T) {
			_, err := DecodeSignature(tcase.der, KeySizeBits)
			var codecErr *CodecError
			assert.True(t, errors.As(err, &codecErr), "expected CodecError, got %v", err)
		})
	}
}

func TestEncodeSignatureInvalidLength(t *testing.T) {
	for _, raw := range [][]byte{nil, {0x01}, bytes.Repeat([]byte{0x01}, 65)} {
		_, err := EncodeSignature(raw)
		var codecErr *CodecError
		assert.True(t, errors.As(err, &codecErr))
	}
	// 2*128 bytes cannot fit a single byte length
	_, err := EncodeSignature(bytes.Repeat([]byte{0x01}, 256))
	var codecErr *CodecError
	assert.True(t, errors.As(err, &codecErr))
}
