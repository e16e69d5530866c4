package drawchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

const envPrefix = "DRAWCHAT_"

const defaultHandshakeTimeout = time.Second * time.Duration(30)
const defaultMaxSolveAttempts = 1 << 24
const defaultGobkvPingPeriod = time.Second * time.Duration(15)

type Config struct {
	OpenURL          string
	Server           ServerConfig
	Validation       ValidationConfig
	MaxTokenAttempts int
	MaxSolveAttempts int
	HandshakeTimeout Duration
	PrivateKeyFile   string
	PublicKeyFile    string
	LogLevel         string
	MetricsAddr      string
	Gobkv            GobkvConfig
	Push             PushConfig
}

// ServerConfig is the session address template.
type ServerConfig struct {
	Scheme string
	Prefix string
	Suffix string
}

// ValidationConfig mirrors the server's room token rules.
type ValidationConfig struct {
	GlobalSalt    string
	KeyedPrefix   string
	UnkeyedPrefix string
	Validators    []ValidatorSpec
}

type ValidatorSpec struct {
	Name    string
	Pattern string
}

type GobkvConfig struct {
	Address    string
	AuthSecret string
	CertFile   string
	KeyFile    string
	PingPeriod Duration
}

type PushConfig struct {
	// Subscription is the browser push subscription JSON.
	Subscription    string
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Duration unmarshals from "30s" style strings or nanoseconds.
// https://stackoverflow.com/a/48051946
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

func DefaultConfig() Config {
	return Config{
		OpenURL:          DefaultOpenURL,
		Server:           ServerConfig{Scheme: "wss"},
		MaxTokenAttempts: DefaultMaxTokenAttempts,
		MaxSolveAttempts: defaultMaxSolveAttempts,
		HandshakeTimeout: Duration{defaultHandshakeTimeout},
		LogLevel:         "info",
		Gobkv:            GobkvConfig{PingPeriod: Duration{defaultGobkvPingPeriod}},
	}
}

// LoadConfig reads defaults, then the file at path (JSON, comments
// allowed) when path is not empty, then DRAWCHAT_* environment overrides.
// An empty path falls back to DRAWCHAT_CONFIG.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := read(path, &cfg); err != nil {
			return cfg, fmt.Errorf("reading config %q: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func read(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonc.ToJSON(data), v)
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"OPEN_URL":         &cfg.OpenURL,
		"SERVER_SCHEME":    &cfg.Server.Scheme,
		"SERVER_PREFIX":    &cfg.Server.Prefix,
		"SERVER_SUFFIX":    &cfg.Server.Suffix,
		"GLOBAL_SALT":      &cfg.Validation.GlobalSalt,
		"KEYED_PREFIX":     &cfg.Validation.KeyedPrefix,
		"UNKEYED_PREFIX":   &cfg.Validation.UnkeyedPrefix,
		"PRIVATE_KEY_FILE": &cfg.PrivateKeyFile,
		"PUBLIC_KEY_FILE":  &cfg.PublicKeyFile,
		"LOG_LEVEL":        &cfg.LogLevel,
		"METRICS_ADDR":     &cfg.MetricsAddr,
		"GOBKV_ADDRESS":    &cfg.Gobkv.Address,
		"GOBKV_SECRET":     &cfg.Gobkv.AuthSecret,
	}
	for name, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_TOKEN_ATTEMPTS": &cfg.MaxTokenAttempts,
		"MAX_SOLVE_ATTEMPTS": &cfg.MaxSolveAttempts,
	}
	for name, dst := range ints {
		v := strings.TrimSpace(os.Getenv(envPrefix + name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if v := strings.TrimSpace(os.Getenv(envPrefix + "HANDSHAKE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sHANDSHAKE_TIMEOUT: %w", envPrefix, err)
		}
		cfg.HandshakeTimeout = Duration{d}
	}
	return nil
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	if c.Server.Scheme == "" {
		return errors.New("invalid config: server scheme must not be empty")
	}
	if c.MaxTokenAttempts <= 0 {
		return errors.New("invalid config: max token attempts must be > 0")
	}
	if c.MaxSolveAttempts < 0 {
		return errors.New("invalid config: max solve attempts must be >= 0")
	}
	if c.HandshakeTimeout.Duration <= 0 {
		return errors.New("invalid config: handshake timeout must be > 0")
	}
	for _, v := range c.Validation.Validators {
		if v.Pattern == "" {
			return fmt.Errorf("invalid config: validator %q has an empty pattern", v.Name)
		}
	}
	if (c.PrivateKeyFile == "") != (c.PublicKeyFile == "") {
		return errors.New("invalid config: private and public key files must be set together")
	}
	if c.Gobkv.Address != "" && c.Gobkv.CertFile != "" && c.Gobkv.KeyFile == "" {
		return errors.New("invalid config: gobkv key file required with cert file")
	}
	return nil
}
