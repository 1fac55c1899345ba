// Package webhooks notifies external endpoints when runs finish.
package webhooks

import (
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Target is an endpoint that receives run events. Empty Events or Tenant
// match everything.
type Target struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
	Tenant string   `yaml:"tenant"`
}

func (t Target) matches(tenantID, eventType string) bool {
	if t.Tenant != "" && t.Tenant != tenantID {
		return false
	}
	return len(t.Events) == 0 || slices.Contains(t.Events, eventType)
}

// Delivery is one pending POST of an event to a target.
type Delivery struct {
	ID        string
	TenantID  string
	EventType string
	URL       string
	Secret    string
	Payload   []byte
	Attempts  int
}

type Publisher struct {
	targets []Target
	queue   chan Delivery
	log     *slog.Logger
}

func NewPublisher(targets []Target, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{targets: targets, queue: make(chan Delivery, 256), log: log}
}

// Emit queues the event for every matching target and returns how many
// deliveries were queued. It never blocks; a full queue drops the event.
func (p *Publisher) Emit(tenantID, eventType string, data any) int {
	if p == nil || len(p.targets) == 0 {
		return 0
	}
	id := uuid.NewString()
	body, err := json.Marshal(map[string]any{
		"id":       id,
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	})
	if err != nil {
		p.log.Warn("webhook payload", "error", err)
		return 0
	}
	n := 0
	for _, t := range p.targets {
		if !t.matches(tenantID, eventType) {
			continue
		}
		if p.enqueue(Delivery{ID: id, TenantID: tenantID, EventType: eventType, URL: t.URL, Secret: t.Secret, Payload: body}) {
			n++
		}
	}
	return n
}

func (p *Publisher) enqueue(d Delivery) bool {
	select {
	case p.queue <- d:
		return true
	default:
		p.log.Warn("webhook queue full, dropping delivery", "event", d.EventType, "url", d.URL)
		return false
	}
}
