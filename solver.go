package drawchat

import (
	"crypto/rand"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	nonceLength   = 50
)

// ChallengeSolver finds proof-of-work nonces for session challenges.
// MaxAttempts of zero leaves the search unbounded; expected work grows
// 16-fold per difficulty character, so callers should set a bound.
type ChallengeSolver struct {
	MaxAttempts int

	rand   io.Reader
	logger *log.Entry
}

func NewChallengeSolver(maxAttempts int) *ChallengeSolver {
	return &ChallengeSolver{
		MaxAttempts: maxAttempts,
		rand:        rand.Reader,
		logger:      log.WithField("component", "solver"),
	}
}

func (s *ChallengeSolver) SetLogger(logger *log.Entry) {
	s.logger = logger
}

// SetRandom replaces the nonce source.
func (s *ChallengeSolver) SetRandom(r io.Reader) {
	s.rand = r
}

// Solve returns the first random nonce for which
// sha256(challenge|nonce|timeTag) in hex starts with difficulty.
func (s *ChallengeSolver) Solve(challenge, difficulty string, timeTag int64) (string, error) {
	suffix := "|" + strconv.FormatInt(timeTag, 10)
	buf := make([]byte, nonceLength)
	for attempt := 1; s.MaxAttempts <= 0 || attempt <= s.MaxAttempts; attempt++ {
		challengeAttempts.Inc()
		nonce, err := s.randomNonce(buf)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(sha256Hex(challenge+"|"+nonce+suffix), difficulty) {
			s.logger.WithFields(log.Fields{"attempts": attempt, "difficulty": difficulty}).Debugln("Solved challenge")
			return nonce, nil
		}
	}
	return "", &ChallengeUnsolved{Challenge: challenge, Difficulty: difficulty, Attempts: s.MaxAttempts}
}

// randomNonce draws nonceLength symbols using rejection sampling so every
// symbol is equally likely.
func (s *ChallengeSolver) randomNonce(buf []byte) (string, error) {
	const limit = 256 - 256%len(nonceAlphabet)
	out := make([]byte, 0, nonceLength)
	for len(out) < nonceLength {
		if _, err := io.ReadFull(s.rand, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, nonceAlphabet[int(b)%len(nonceAlphabet)])
			if len(out) == nonceLength {
				break
			}
		}
	}
	return string(out), nil
}
