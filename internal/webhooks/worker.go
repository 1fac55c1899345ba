package webhooks

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"antroute/internal/metrics"
)

// Worker drains the publisher queue and retries failed deliveries with
// exponential backoff.
type Worker struct {
	Pub         *Publisher
	HTTP        *http.Client
	MaxAttempts int
	Backoff     func(attempts int) time.Duration
	log         *slog.Logger
	wg          sync.WaitGroup
}

func NewWorker(p *Publisher, maxAttempts int, log *slog.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{Pub: p, HTTP: &http.Client{Timeout: 5 * time.Second}, MaxAttempts: maxAttempts, Backoff: nextBackoff, log: log}
}

// Start processes deliveries until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-w.Pub.queue:
				w.process(ctx, d)
			}
		}
	}()
}

// Wait blocks until the worker loop has exited.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) process(ctx context.Context, d Delivery) {
	if w.deliver(ctx, d) {
		return
	}
	d.Attempts++
	if d.Attempts >= w.MaxAttempts {
		metrics.WebhookDeliveries.WithLabelValues(d.EventType, "failed").Inc()
		w.log.Warn("webhook delivery gave up", "event", d.EventType, "url", d.URL, "attempts", d.Attempts)
		return
	}
	time.AfterFunc(w.Backoff(d.Attempts), func() {
		if ctx.Err() == nil {
			w.Pub.enqueue(d)
		}
	})
}

// deliver makes one attempt and reports success.
func (w *Worker) deliver(ctx context.Context, d Delivery) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		w.log.Warn("webhook request", "url", d.URL, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Delivery-Id", d.ID)
	if d.Secret != "" {
		req.Header.Set(SignatureHeader, SignHMAC(d.Secret, d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := float64(time.Since(start).Milliseconds())
	code := 0
	if err == nil {
		code = resp.StatusCode
		_ = resp.Body.Close()
	}
	ok := err == nil && code >= 200 && code < 300
	status := strconv.Itoa(code)
	if err != nil {
		status = "error"
	}
	metrics.WebhookDeliveries.WithLabelValues(d.EventType, status).Inc()
	metrics.WebhookLatency.WithLabelValues(d.EventType, status).Observe(latency)
	if !ok {
		w.log.Debug("webhook attempt failed", "url", d.URL, "status", status, "attempt", d.Attempts+1)
	}
	return ok
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
