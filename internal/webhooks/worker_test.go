package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitMatchesTargets(t *testing.T) {
	p := NewPublisher([]Target{
		{URL: "http://a", Events: []string{"run.completed"}},
		{URL: "http://b", Tenant: "t2"},
		{URL: "http://c"},
	}, nil)
	assert.Equal(t, 2, p.Emit("t1", "run.completed", nil))
	assert.Equal(t, 1, p.Emit("t1", "run.failed", nil))
	assert.Equal(t, 2, p.Emit("t2", "run.failed", nil))
	assert.Equal(t, 0, (*Publisher)(nil).Emit("t1", "run.completed", nil))
}

func TestWorkerDeliversSignedPayload(t *testing.T) {
	got := make(chan *http.Request, 1)
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		got <- r
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewPublisher([]Target{{URL: srv.URL, Secret: "secret"}}, nil)
	w := NewWorker(p, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); w.Wait() }()
	w.Start(ctx)

	require.Equal(t, 1, p.Emit("t1", "run.completed", map[string]any{"runId": "r1"}))
	select {
	case r := <-got:
		assert.Equal(t, "run.completed", r.Header.Get("X-Event-Type"))
		assert.True(t, VerifyHMAC("secret", body, r.Header.Get(SignatureHeader)))
		var evt map[string]any
		require.NoError(t, json.Unmarshal(body, &evt))
		assert.Equal(t, "t1", evt["tenantId"])
		assert.Equal(t, "r1", evt["data"].(map[string]any)["runId"])
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}
}

func TestWorkerRetriesThenGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewPublisher([]Target{{URL: srv.URL}}, nil)
	w := NewWorker(p, 3, nil)
	w.Backoff = func(int) time.Duration { return time.Millisecond }
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); w.Wait() }()
	w.Start(ctx)

	p.Emit("t1", "run.failed", nil)
	assert.Eventually(t, func() bool { return hits.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSignatureRejectsTampering(t *testing.T) {
	sig := SignHMAC("k", []byte("payload"))
	assert.True(t, VerifyHMAC("k", []byte("payload"), sig))
	assert.False(t, VerifyHMAC("k", []byte("payload!"), sig))
	assert.False(t, VerifyHMAC("k", []byte("payload"), "zz"))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(-1))
	assert.Equal(t, 4*time.Second, nextBackoff(2))
	assert.Equal(t, 1024*time.Second, nextBackoff(50))
}
