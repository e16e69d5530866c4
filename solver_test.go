package drawchat

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveEmptyDifficulty(t *testing.T) {
	solver := NewChallengeSolver(0)
	solver.SetRandom(bytes.NewReader(bytes.Repeat([]byte{0x01}, nonceLength)))

	before := testutil.ToFloat64(challengeAttempts)
	nonce, err := solver.Solve("c1", "", 42)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("B", nonceLength), nonce)
	assert.Equal(t, float64(1), testutil.ToFloat64(challengeAttempts)-before)
}

func TestSolveDifficulty(t *testing.T) {
	solver := NewChallengeSolver(100000)
	nonce, err := solver.Solve("challenge", "00", 7)
	require.NoError(t, err)
	assert.Len(t, nonce, nonceLength)
	assert.Regexp(t, `^[A-Za-z0-9]+$`, nonce)
	assert.True(t, strings.HasPrefix(sha256Hex("challenge|"+nonce+"|7"), "00"))
}

func TestSolveBounded(t *testing.T) {
	solver := NewChallengeSolver(20)
	// hex digests never contain 'g'
	_, err := solver.Solve("challenge", "g", 1)
	var unsolved *ChallengeUnsolved
	require.True(t, errors.As(err, &unsolved))
	assert.Equal(t, 20, unsolved.Attempts)
	assert.Equal(t, "g", unsolved.Difficulty)
}

func TestSolveCaseSensitive(t *testing.T) {
	solver := NewChallengeSolver(50)
	_, err := solver.Solve("challenge", "A", 1)
	var unsolved *ChallengeUnsolved
	assert.True(t, errors.As(err, &unsolved))
}

func TestRandomNonceRejectsBiasedBytes(t *testing.T) {
	solver := NewChallengeSolver(1)
	// 0xff and 0xf8 are above the last full alphabet cycle and are skipped
	input := append(bytes.Repeat([]byte{0xff, 0xf8}, nonceLength), bytes.Repeat([]byte{61}, nonceLength)...)
	solver.SetRandom(bytes.NewReader(input))
	nonce, err := solver.randomNonce(make([]byte, nonceLength))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("9", nonceLength), nonce)
}

func TestSolveRandomFailure(t *testing.T) {
	solver := NewChallengeSolver(0)
	solver.SetRandom(iotest.ErrReader(errors.New("no entropy")))
	_, err := solver.Solve("c", "", 1)
	assert.Error(t, err)
}
