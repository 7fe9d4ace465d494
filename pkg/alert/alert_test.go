package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification() *Notification {
	return &Notification{
		Niche:         "meditation",
		Body:          "Demand signals across 2 channels",
		Overall:       72,
		ChannelScores: map[string]int{"app": 56, "content": 68},
		Samples:       map[string]int{"app": 40, "content": 120},
	}
}

func TestWebhookSignsPayload(t *testing.T) {
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "s3cret")
	require.NoError(t, wh.Send(context.Background(), testNotification()))

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(gotBody)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func TestWebhookNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "")
	err := wh.Send(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestManagerBroadcastCollectsErrors(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	mgr := NewManager([]Notifier{NewWebhook(ok.URL, ""), NewWebhook(bad.URL, "")})
	require.True(t, mgr.HasNotifiers())

	err := mgr.Broadcast(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
}

func TestManagerWithoutNotifiers(t *testing.T) {
	mgr := NewManager(nil)
	assert.False(t, mgr.HasNotifiers())
	assert.NoError(t, mgr.Broadcast(context.Background(), testNotification()))
}
