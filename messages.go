package drawchat

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Session message tags.
const (
	CmdWelcome     = "welcome"
	CmdPassIn      = "pass-in"
	CmdSetup       = "setup"
	CmdTextMessage = "text-message"
)

// inboundMessage holds the union of fields the server sends.
type inboundMessage struct {
	Cmd          string     `json:"cmd"`
	Challenge    string     `json:"challenge"`
	Difficulty   string     `json:"difficulty"`
	Timestamp    flexNumber `json:"ts"`
	CreationRate flexNumber `json:"crtr"`
}

// SetupMessage answers the welcome challenge and identifies the room.
type SetupMessage struct {
	Cmd           string      `json:"cmd"`
	Action        string      `json:"action"`
	Responses     []string    `json:"responses"`
	UserName      string      `json:"user_name"`
	UserSignature string      `json:"user_signature"`
	RoomToken     string      `json:"room_token"`
	RoomPublicKey string      `json:"room_public_key"`
	RoomNonce     string      `json:"room_nonce"`
	RoomSeed      string      `json:"room_seed"`
	RoomConfig    interface{} `json:"room_config,omitempty"`
}

// TextMessage carries one chat line or slash command.
type TextMessage struct {
	Cmd     string `json:"cmd"`
	Message string `json:"message"`
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber struct {
	Value float64
	Set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		n.Value = value
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		n.Value = f
	default:
		return errors.New("invalid number")
	}
	n.Set = true
	return nil
}
