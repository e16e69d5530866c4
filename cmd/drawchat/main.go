package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	drawchat "github.com/dr-useless/go-drawchat"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
)

type options struct {
	configFile      string
	board           string
	user            string
	permissions     string
	boardConfigFile string
	action          string
	commands        []string
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	mode := os.Args[1]
	if mode != "link" && mode != "api" {
		printUsage()
		os.Exit(2)
	}

	opts := options{}
	flagSet := pflag.NewFlagSet("drawchat "+mode, pflag.ContinueOnError)
	flagSet.StringVar(&opts.configFile, "config", "", "config file path (JSON, comments allowed)")
	flagSet.StringVar(&opts.board, "board", "", "unique board key")
	flagSet.StringVar(&opts.user, "user", "", "user name shown on the board")
	flagSet.StringVar(&opts.permissions, "permissions", string(drawchat.PermUser), "permission string, e.g. RDC___ or ADC___")
	flagSet.StringVar(&opts.boardConfigFile, "board-config", "", "board configuration file (JSON)")
	flagSet.StringVar(&opts.action, "action", "", "session setup action, e.g. reset (api only)")
	flagSet.StringArrayVar(&opts.commands, "command", nil, "chat command to send once the session is set up (api only, repeatable)")
	if err := flagSet.Parse(os.Args[2:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(mode, opts); err != nil {
		log.WithError(err).Fatalln("drawchat failed")
	}
}

func run(mode string, opts options) error {
	cfg, err := drawchat.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if opts.board == "" {
		return errors.New("--board is required")
	}
	if cfg.PrivateKeyFile == "" {
		return errors.New("private and public key files must be configured")
	}
	keys, err := drawchat.LoadKeyPairFiles(cfg.PrivateKeyFile, cfg.PublicKeyFile)
	if err != nil {
		return err
	}
	builder, err := drawchat.NewCredentialBuilder(keys)
	if err != nil {
		return err
	}

	var boardConfig interface{}
	if opts.boardConfigFile != "" {
		if boardConfig, err = readBoardConfig(opts.boardConfigFile); err != nil {
			return err
		}
	}
	cred, err := builder.Build(opts.board, opts.user, drawchat.Permissions(opts.permissions), boardConfig)
	if err != nil {
		return err
	}

	if mode == "link" {
		fmt.Println(cred.Link(cfg.OpenURL))
		return nil
	}
	return runSession(cfg, opts, cred)
}

func runSession(cfg drawchat.Config, opts options, cred *drawchat.Credential) error {
	if cfg.MetricsAddr != "" {
		drawchat.RegisterMetrics()
		go func() {
			log.WithField("address", cfg.MetricsAddr).Infoln("Serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				log.WithError(err).Errorln("Metrics server stopped")
			}
		}()
	}

	deriver, err := drawchat.NewTokenDeriver(cfg.Validation, cfg.MaxTokenAttempts)
	if err != nil {
		return err
	}
	if cfg.Gobkv.Address != "" {
		cache, err := drawchat.DialGobkvTokenCache(cfg.Gobkv)
		if err != nil {
			return fmt.Errorf("connecting to gobkv: %w", err)
		}
		defer cache.Close()
		done := make(chan struct{})
		defer close(done)
		go cache.KeepClientUp(cfg.Gobkv.PingPeriod.Duration, done)
		deriver.SetCache(cache)
	}
	token, err := deriver.DeriveForCredential(cred)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HandshakeTimeout.Duration)
	defer cancel()

	addr := drawchat.SessionAddress(cfg.Server, cfg.Validation.GlobalSalt, token.Token)
	log.WithField("address", addr).Infoln("Opening session")
	channel, err := drawchat.DialSession(ctx, addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}

	session := drawchat.NewSession(channel, drawchat.SessionParams{
		Credential: cred,
		Token:      token,
		Action:     opts.action,
		Commands:   opts.commands,
		Solver:     drawchat.NewChallengeSolver(cfg.MaxSolveAttempts),
	})
	notifier, err := drawchat.NewNotifier(cfg.Push)
	if err != nil {
		return err
	}
	if notifier != nil {
		session.SetOnClose(notifier.SessionClosed(opts.board))
	}

	start := time.Now()
	if err := channel.Serve(ctx, session); err != nil {
		// without commands the session only ends by timing out
		if len(opts.commands) > 0 || !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	log.WithField("elapsed", time.Since(start)).Infoln("Session finished")
	return nil
}

func readBoardConfig(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(jsonc.ToJSON(data), &v); err != nil {
		return nil, fmt.Errorf("parsing board config %q: %w", path, err)
	}
	return v, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: drawchat link|api --config FILE --board KEY --user NAME [--permissions P] [--board-config FILE] [--action A] [--command CMD ...]")
}
