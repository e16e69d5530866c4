package drawchat

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// tokenDigestLength is the number of base-36 digest characters appended to
// the token prefix.
const tokenDigestLength = 27

// DefaultMaxTokenAttempts bounds the room token search when no ceiling is
// configured.
const DefaultMaxTokenAttempts = 1 << 20

// RoomToken addresses a session. Nonce is the base-36 attempt counter that
// produced Token.
type RoomToken struct {
	Token string `json:"token" msgpack:"token"`
	Nonce string `json:"nonce" msgpack:"nonce"`
}

// Validator is one server-side token rule.
type Validator struct {
	Name    string
	Pattern *regexp.Regexp
}

// CompileValidators compiles the configured validator patterns.
func CompileValidators(specs []ValidatorSpec) ([]Validator, error) {
	validators := make([]Validator, 0, len(specs))
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("validator %q: %w", spec.Name, err)
		}
		validators = append(validators, Validator{Name: spec.Name, Pattern: re})
	}
	return validators, nil
}

// DeriveRoomToken searches attempt counters 0, 1, 2, ... for the first
// token the validator set accepts.
func DeriveRoomToken(seed, prefix string, validators []Validator, globalSalt string, maxAttempts int) (RoomToken, error) {
	token, _, err := deriveRoomToken(seed, prefix, validators, globalSalt, maxAttempts)
	return token, err
}

func deriveRoomToken(seed, prefix string, validators []Validator, globalSalt string, maxAttempts int) (RoomToken, *Validator, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tokenAttempts.Inc()
		nonce, err := ConvertBase(strconv.FormatInt(int64(attempt), 2), 2, 36)
		if err != nil {
			return RoomToken{}, nil, err
		}
		digest, err := tokenDigest(seed + "|" + nonce)
		if err != nil {
			return RoomToken{}, nil, err
		}
		proposal := prefix + digest
		if v := matchValidator(validators, proposal+"~"+sha256Hex(globalSalt+"|"+proposal)); v != nil {
			return RoomToken{Token: proposal, Nonce: nonce}, v, nil
		}
	}
	return RoomToken{}, nil, &TokenGenerationExhausted{Seed: seed, Prefix: prefix, Attempts: maxAttempts}
}

// tokenDigest hashes input and re-encodes the digest bits in base 36,
// keeping the leading tokenDigestLength characters.
func tokenDigest(input string) (string, error) {
	bits, err := ConvertBase(sha256Hex(input), 16, 2)
	if err != nil {
		return "", err
	}
	b36, err := ConvertBase(bits, 2, 36)
	if err != nil {
		return "", err
	}
	if len(b36) > tokenDigestLength {
		b36 = b36[:tokenDigestLength]
	}
	return b36, nil
}

func matchValidator(validators []Validator, candidate string) *Validator {
	for i := range validators {
		if validators[i].Pattern.MatchString(candidate) {
			return &validators[i]
		}
	}
	return nil
}

// TokenDeriver derives room tokens under one validation config, optionally
// through a cache.
type TokenDeriver struct {
	cfg         ValidationConfig
	validators  []Validator
	maxAttempts int
	cache       TokenCache
	logger      *log.Entry
}

// NewTokenDeriver compiles the validators of cfg. A maxAttempts of zero
// means DefaultMaxTokenAttempts.
func NewTokenDeriver(cfg ValidationConfig, maxAttempts int) (*TokenDeriver, error) {
	if len(cfg.Validators) == 0 {
		return nil, errors.New("at least one room token validator is required")
	}
	validators, err := CompileValidators(cfg.Validators)
	if err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxTokenAttempts
	}
	return &TokenDeriver{
		cfg:         cfg,
		validators:  validators,
		maxAttempts: maxAttempts,
		logger:      log.WithField("component", "roomtoken"),
	}, nil
}

func (d *TokenDeriver) SetLogger(logger *log.Entry) {
	d.logger = logger
}

// SetCache makes Derive consult and fill cache.
func (d *TokenDeriver) SetCache(cache TokenCache) {
	d.cache = cache
}

// SelectSeed picks the derivation seed. With both a public key and a board
// seed the seed is "publicKey|boardSeed" under the keyed prefix; otherwise
// fallback (a random UUID when empty) under the unkeyed prefix.
func (d *TokenDeriver) SelectSeed(publicKey, boardSeed, fallback string) (seed, prefix string) {
	if publicKey != "" && boardSeed != "" {
		return publicKey + "|" + boardSeed, d.cfg.KeyedPrefix
	}
	if fallback == "" {
		fallback = uuid.NewString()
	}
	return fallback, d.cfg.UnkeyedPrefix
}

// DeriveForCredential derives the token addressing the credential's board.
func (d *TokenDeriver) DeriveForCredential(cred *Credential) (RoomToken, error) {
	seed, prefix := d.SelectSeed(cred.PublicKey, cred.BoardSeed, "")
	return d.Derive(seed, prefix)
}

func (d *TokenDeriver) Derive(seed, prefix string) (RoomToken, error) {
	var key string
	if d.cache != nil {
		key = tokenCacheKey(d.cfg, seed, prefix)
		token, ok, err := d.cache.Get(key)
		if err != nil {
			d.logger.WithError(err).Warningln("Can't read room token cache")
		} else if ok {
			d.logger.WithField("token", token.Token).Debugln("Room token served from cache")
			return token, nil
		}
	}

	token, matched, err := deriveRoomToken(seed, prefix, d.validators, d.cfg.GlobalSalt, d.maxAttempts)
	if err != nil {
		d.logger.WithError(err).Errorln("Can't derive room token")
		return RoomToken{}, err
	}
	d.logger.WithFields(log.Fields{"token": token.Token, "nonce": token.Nonce, "validator": matched.Name}).
		Debugln("Derived room token")

	if d.cache != nil {
		if err := d.cache.Put(key, token); err != nil {
			d.logger.WithError(err).Warningln("Can't store room token in cache")
		}
	}
	return token, nil
}
