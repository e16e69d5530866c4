package drawchat

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Channel is the message transport a Session drives. The session never
// opens it; it only sends on it and closes it when done.
type Channel interface {
	Send(msg interface{}) error
	Close() error
}

// State is the position of a Session in the handshake.
type State int

const (
	StateConnecting State = iota
	StateAwaitingWelcome
	StateSolving
	StateAwaitingPassthrough
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingWelcome:
		return "awaiting_welcome"
	case StateSolving:
		return "solving"
	case StateAwaitingPassthrough:
		return "awaiting_passthrough"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// SessionAddress is the websocket address of the shard serving token:
// scheme://prefix0x<shard>suffix/token/ws, shard being the first two hex
// characters of sha256(salt|token).
func SessionAddress(server ServerConfig, globalSalt, token string) string {
	shard := sha256Hex(globalSalt + "|" + token)[:2]
	return fmt.Sprintf("%s://%s0x%s%s/%s/ws", server.Scheme, server.Prefix, shard, server.Suffix, token)
}

// SessionParams is everything a session sends during setup.
type SessionParams struct {
	Credential *Credential
	Token      RoomToken
	Action     string
	// Commands are sent as text messages once the server passes control
	// to the client. With no commands the session stays open.
	Commands []string
	Solver   *ChallengeSolver
}

// SessionResult describes a finished session.
type SessionResult struct {
	ID        string
	Delivered int
	Err       error
}

// Session is the client side of one handshake. It is driven by the
// channel's dispatch loop and must not be used from several goroutines.
type Session struct {
	id        string
	state     State
	channel   Channel
	params    SessionParams
	delivered int
	err       error
	onClose   func(SessionResult)
	logger    *log.Entry
}

func NewSession(channel Channel, params SessionParams) *Session {
	if params.Solver == nil {
		params.Solver = NewChallengeSolver(0)
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		state:   StateConnecting,
		channel: channel,
		params:  params,
		logger:  log.WithFields(log.Fields{"component": "session", "session": id}),
	}
}

func (s *Session) SetLogger(logger *log.Entry) {
	s.logger = logger.WithField("session", s.id)
}

// SetOnClose registers fn to run once when the session closes.
func (s *Session) SetOnClose(fn func(SessionResult)) {
	s.onClose = fn
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

// Err is the error that closed the session, nil while it is open or when
// it closed normally.
func (s *Session) Err() error {
	return s.err
}

// Opened tells the session its channel is open.
func (s *Session) Opened() {
	if s.state == StateConnecting {
		s.transition(StateAwaitingWelcome)
	}
}

// HandleMessage processes one inbound message. Unknown tags and payloads
// that are not JSON objects are ignored. The returned error is fatal to the
// session, which is closed by then.
func (s *Session) HandleMessage(data []byte) error {
	if s.state == StateClosed {
		return nil
	}
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.WithError(err).Debugln("Ignoring undecodable message")
		return nil
	}
	s.logger.WithField("cmd", msg.Cmd).Debugln("Received message")

	switch msg.Cmd {
	case CmdWelcome:
		if s.state != StateConnecting && s.state != StateAwaitingWelcome {
			return nil
		}
		return s.handleWelcome(&msg)
	case CmdPassIn:
		if s.state != StateAwaitingPassthrough {
			return nil
		}
		return s.handlePassIn()
	}
	return nil
}

func (s *Session) handleWelcome(msg *inboundMessage) error {
	if !msg.Timestamp.Set || !msg.CreationRate.Set || msg.CreationRate.Value <= 0 {
		s.logger.WithFields(log.Fields{"ts": msg.Timestamp.Value, "crtr": msg.CreationRate.Value}).
			Warningln("Ignoring welcome without usable timestamp")
		return nil
	}
	timeTag := int64(math.Floor(msg.Timestamp.Value / msg.CreationRate.Value))

	s.transition(StateSolving)
	nonce, err := s.params.Solver.Solve(msg.Challenge, msg.Difficulty, timeTag)
	if err != nil {
		return s.fail(fmt.Errorf("solving challenge: %w", err))
	}

	cred := s.params.Credential
	setup := SetupMessage{
		Cmd:           CmdSetup,
		Action:        s.params.Action,
		Responses:     []string{nonce},
		UserName:      cred.Username,
		UserSignature: cred.Signature,
		RoomToken:     s.params.Token.Token,
		RoomPublicKey: cred.PublicKey,
		RoomNonce:     s.params.Token.Nonce,
		RoomSeed:      cred.BoardSeed,
		RoomConfig:    cred.Config,
	}
	if err := s.channel.Send(setup); err != nil {
		return s.fail(fmt.Errorf("sending setup: %w", err))
	}
	s.transition(StateAwaitingPassthrough)
	return nil
}

func (s *Session) handlePassIn() error {
	if len(s.params.Commands) == 0 {
		return nil
	}
	for _, command := range s.params.Commands {
		if err := s.channel.Send(TextMessage{Cmd: CmdTextMessage, Message: command}); err != nil {
			return s.fail(fmt.Errorf("sending command: %w", err))
		}
		s.delivered++
	}
	if err := s.channel.Close(); err != nil {
		s.logger.WithError(err).Warningln("Can't close channel")
	}
	s.finish(nil)
	return nil
}

// Abort closes the session after its channel went away. It does not touch
// the channel.
func (s *Session) Abort(err error) {
	if s.state == StateClosed {
		return
	}
	if err == nil {
		err = ErrSessionClosed
	}
	s.logger.WithError(err).Warningln("Session aborted")
	s.finish(err)
}

func (s *Session) fail(err error) error {
	s.logger.WithError(err).Errorln("Session failed")
	if closeErr := s.channel.Close(); closeErr != nil {
		s.logger.WithError(closeErr).Debugln("Can't close channel")
	}
	s.finish(err)
	return err
}

func (s *Session) finish(err error) {
	s.err = err
	s.transition(StateClosed)
	if err == nil {
		sessionCounter.WithLabelValues(LabelStatusSuccess).Inc()
	} else {
		sessionCounter.WithLabelValues(LabelStatusFail).Inc()
	}
	if s.onClose != nil {
		s.onClose(SessionResult{ID: s.id, Delivered: s.delivered, Err: err})
	}
}

func (s *Session) transition(next State) {
	s.logger.WithFields(log.Fields{"from": s.state, "to": next}).Infoln("Session state changed")
	s.state = next
}
