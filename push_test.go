package drawchat

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushRequest struct {
	header http.Header
	body   []byte
}

func testSubscription(t *testing.T, status int) (string, chan pushRequest) {
	t.Helper()
	requests := make(chan pushRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- pushRequest{header: r.Header.Clone(), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	sub, err := json.Marshal(map[string]interface{}{
		"endpoint": srv.URL + "/push/abc",
		"keys": map[string]string{
			"p256dh": base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			"auth":   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
	require.NoError(t, err)
	return string(sub), requests
}

func TestNewNotifierWithoutSubscription(t *testing.T) {
	n, err := NewNotifier(PushConfig{})
	assert.NoError(t, err)
	assert.Nil(t, n)

	_, err = NewNotifier(PushConfig{Subscription: "{not json"})
	assert.Error(t, err)
}

func TestNotifierSessionClosed(t *testing.T) {
	sub, requests := testSubscription(t, http.StatusCreated)
	n, err := NewNotifier(PushConfig{Subscription: sub, Subscriber: "ops@example.test"})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.NotEmpty(t, n.PublicKey())

	n.SessionClosed("board")(SessionResult{ID: "id", Delivered: 2})

	select {
	case req := <-requests:
		assert.Equal(t, "aes128gcm", req.header.Get("Content-Encoding"))
		assert.Equal(t, "120", req.header.Get("TTL"))
		assert.NotEmpty(t, req.header.Get("Authorization"))
		assert.NotEmpty(t, req.body)
	case <-time.After(5 * time.Second):
		t.Fatal("no push request received")
	}
}

func TestNotifierPushFailure(t *testing.T) {
	sub, requests := testSubscription(t, http.StatusGone)
	n, err := NewNotifier(PushConfig{Subscription: sub})
	require.NoError(t, err)

	err = n.push(sessionNotification{Type: "session", Error: errors.New("x").Error()})
	assert.Error(t, err)
	<-requests
}
