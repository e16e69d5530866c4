package drawchat

import (
	"encoding/json"
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
)

// Notifier pushes session outcomes to a browser subscription.
type Notifier struct {
	sub        *webpush.Subscription
	subscriber string
	privateKey string
	publicKey  string
	logger     *log.Entry
}

type sessionNotification struct {
	Type      string `json:"type"`
	Board     string `json:"board"`
	Session   string `json:"session"`
	Delivered int    `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// NewNotifier returns nil when cfg has no subscription.
func NewNotifier(cfg PushConfig) (*Notifier, error) {
	if cfg.Subscription == "" {
		return nil, nil
	}
	sub := &webpush.Subscription{}
	if err := json.Unmarshal([]byte(cfg.Subscription), sub); err != nil {
		return nil, fmt.Errorf("parsing push subscription: %w", err)
	}
	n := &Notifier{
		sub:        sub,
		subscriber: cfg.Subscriber,
		privateKey: cfg.VAPIDPrivateKey,
		publicKey:  cfg.VAPIDPublicKey,
		logger:     log.WithField("component", "push"),
	}
	if err := n.ensureKey(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Notifier) ensureKey() error {
	if n.publicKey != "" && n.privateKey != "" {
		return nil
	}
	var err error
	n.privateKey, n.publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("generating VAPID keys: %w", err)
	}
	n.logger.WithField("vapid_public_key", n.publicKey).Infoln("Generated VAPID keys")
	return nil
}

// PublicKey is the VAPID application server key.
func (n *Notifier) PublicKey() string {
	return n.publicKey
}

// SessionClosed returns a session close hook reporting on board.
func (n *Notifier) SessionClosed(board string) func(SessionResult) {
	return func(result SessionResult) {
		note := sessionNotification{
			Type:      "session",
			Board:     board,
			Session:   result.ID,
			Delivered: result.Delivered,
		}
		if result.Err != nil {
			note.Error = result.Err.Error()
		}
		if err := n.push(note); err != nil {
			n.logger.WithError(err).Warningln("Can't send push notification")
		}
	}
}

func (n *Notifier) push(note sessionNotification) error {
	message, err := json.Marshal(note)
	if err != nil {
		return err
	}
	resp, err := webpush.SendNotification(message, n.sub, &webpush.Options{
		Subscriber:      n.subscriber,
		VAPIDPublicKey:  n.publicKey,
		VAPIDPrivateKey: n.privateKey,
		TTL:             120,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push service answered %s", resp.Status)
	}
	return nil
}
