package drawchat

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBase(t *testing.T) {
	testcases := []struct {
		digits   string
		from, to int
		expected string
	}{
		{"1010", 2, 16, "a"},
		{"", 2, 36, "0"},
		{"0", 2, 36, "0"},
		{"0000000", 2, 16, "0"},
		{"000", 16, 36, "0"},
		{"1", 2, 36, "1"},
		{"100100", 2, 36, "10"},
		{"ff", 16, 2, "11111111"},
		{"00ff", 16, 10, "255"},
		{"FF", 16, 10, "255"},
		{"zz", 36, 10, "1295"},
	}
	for _, tcase := range testcases {
		result, err := ConvertBase(tcase.digits, tcase.from, tcase.to)
		require.NoError(t, err)
		assert.Equal(t, tcase.expected, result, "%q base %d -> %d", tcase.digits, tcase.from, tcase.to)
	}
}

func TestConvertBaseBeyondNativeWidth(t *testing.T) {
	hexDigest := sha256Hex("wide")
	bits, err := ConvertBase(hexDigest, 16, 2)
	require.NoError(t, err)
	b36, err := ConvertBase(bits, 2, 36)
	require.NoError(t, err)

	n, ok := new(big.Int).SetString(hexDigest, 16)
	require.True(t, ok)
	assert.Equal(t, n.Text(2), bits)
	assert.Equal(t, n.Text(36), b36)
}

func TestConvertBaseInvalid(t *testing.T) {
	_, err := ConvertBase("102", 2, 16)
	assert.Error(t, err)
	_, err = ConvertBase("1", 1, 16)
	assert.Error(t, err)
	_, err = ConvertBase("1", 2, 37)
	assert.Error(t, err)
	_, err = ConvertBase(strings.Repeat("1", 10)+"!", 2, 16)
	assert.Error(t, err)
}
