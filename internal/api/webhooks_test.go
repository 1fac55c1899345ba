package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antroute/internal/config"
	"antroute/internal/webhooks"
)

func TestRunCompletionWebhook(t *testing.T) {
	got := make(chan []byte, 1)
	var sig string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		sig = r.Header.Get(webhooks.SignatureHeader)
		got <- b
	}))
	defer hook.Close()

	s, h := newTestServer(t, func(c *config.Config) {
		c.Webhooks = []webhooks.Target{{URL: hook.URL, Secret: "k", Events: []string{"run.completed"}}}
	})
	ctx, cancel := context.WithCancel(context.Background())
	worker := s.NewWebhookWorker()
	worker.Start(ctx)
	defer func() { cancel(); worker.Wait() }()

	rr := do(t, h, http.MethodPost, "/v1/solve", "t_hook", singleStopRequest())
	require.Equal(t, http.StatusOK, rr.Code)
	run := decodeRun(t, rr)

	select {
	case body := <-got:
		assert.True(t, webhooks.VerifyHMAC("k", body, sig))
		var evt struct {
			Type     string `json:"type"`
			TenantID string `json:"tenantId"`
			Data     struct {
				ID        string  `json:"id"`
				BestScore float64 `json:"bestScore"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &evt))
		assert.Equal(t, "run.completed", evt.Type)
		assert.Equal(t, "t_hook", evt.TenantID)
		assert.Equal(t, run.ID, evt.Data.ID)
		assert.Equal(t, 2.0, evt.Data.BestScore)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook not delivered")
	}
}
