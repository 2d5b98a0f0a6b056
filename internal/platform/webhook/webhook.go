// Package webhook pushes signed JSON events to external care coordination
// systems.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Signature headers set on every delivery.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEventID   = "X-Webhook-ID"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// Event is the JSON envelope POSTed to endpoints.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Endpoint is a delivery target. Events holds subscription patterns such as
// "followup.created" or "followup.*"; an empty list subscribes to everything.
type Endpoint struct {
	URL    string
	Events []string
}

// DeliveryResult summarises the outcome of delivering an event to one endpoint.
type DeliveryResult struct {
	URL        string        `json:"url"`
	Success    bool          `json:"success"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// Options configures a Dispatcher.
type Options struct {
	Endpoints []Endpoint
	Secret    string
	Timeout   time.Duration
	Retries   int
	// QueueSize bounds the number of events waiting for delivery.
	QueueSize int
	Workers   int
}

// SignPayload computes an HMAC-SHA256 signature of the payload using the given secret,
// returning the hex-encoded result.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature returns true when the hex-encoded signature matches the HMAC-SHA256
// of payload under the given secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}

// ValidateURL checks that the URL is absolute and uses http or https.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", rawURL)
	}
	return nil
}

// eventMatches returns true if the event type matches a subscription pattern.
// Patterns can be exact ("followup.created") or wildcard ("*.completed", "followup.*").
func eventMatches(pattern, eventType string) bool {
	if pattern == eventType || pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(eventType, pattern[1:])
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	}
	return false
}

func (ep Endpoint) subscribes(eventType string) bool {
	if len(ep.Events) == 0 {
		return true
	}
	for _, pat := range ep.Events {
		if eventMatches(pat, eventType) {
			return true
		}
	}
	return false
}

// Dispatcher delivers events in the background. Publish never blocks: when the
// queue is full the event is dropped and logged.
type Dispatcher struct {
	endpoints []Endpoint
	secret    string
	http      *resty.Client
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	workers int
	wg      sync.WaitGroup
}

func NewDispatcher(opts Options, logger zerolog.Logger) (*Dispatcher, error) {
	for _, ep := range opts.Endpoints {
		if err := ValidateURL(ep.URL); err != nil {
			return nil, err
		}
	}
	if len(opts.Endpoints) > 0 && opts.Secret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError ||
				r.StatusCode() == http.StatusTooManyRequests
		}).
		SetHeader("Content-Type", "application/json")

	return &Dispatcher{
		endpoints: opts.Endpoints,
		secret:    opts.Secret,
		http:      client,
		logger:    logger.With().Str("component", "webhook").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		queue:     make(chan Event, opts.QueueSize),
		workers:   opts.Workers,
	}, nil
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.endpoints) > 0
}

// Start launches the delivery workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for ev := range d.queue {
				d.Deliver(context.Background(), ev)
			}
		}()
	}
}

// Close stops accepting events and waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// NewEvent wraps data in an envelope with a fresh ID.
func (d *Dispatcher) NewEvent(eventType string, data interface{}) (Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: d.now(),
	}, nil
}

// Publish queues an event for delivery and reports whether it was accepted.
func (d *Dispatcher) Publish(eventType string, data interface{}) bool {
	if !d.Enabled() {
		return false
	}
	ev, err := d.NewEvent(eventType, data)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to build webhook event")
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		d.logger.Warn().Str("event_type", eventType).Str("event_id", ev.ID).
			Msg("webhook queue full, dropping event")
		return false
	}
}

// Deliver sends the event to every subscribed endpoint synchronously.
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) []DeliveryResult {
	var results []DeliveryResult
	for _, ep := range d.endpoints {
		if !ep.subscribes(ev.Type) {
			continue
		}
		res := d.deliverTo(ctx, ep, ev)
		if !res.Success {
			d.logger.Warn().
				Str("url", res.URL).
				Str("event_type", ev.Type).
				Str("event_id", ev.ID).
				Int("status_code", res.StatusCode).
				Str("error", res.Error).
				Msg("webhook delivery failed")
		}
		results = append(results, res)
	}
	return results
}

func (d *Dispatcher) deliverTo(ctx context.Context, ep Endpoint, ev Event) DeliveryResult {
	result := DeliveryResult{URL: ep.URL}

	body, err := json.Marshal(ev)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader(HeaderSignature, "sha256="+SignPayload(body, d.secret)).
		SetHeader(HeaderEventID, ev.ID).
		SetHeader(HeaderTimestamp, ev.Timestamp.Format(time.RFC3339)).
		SetBody(body).
		Post(ep.URL)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.StatusCode = resp.StatusCode()
	if resp.IsSuccess() {
		result.Success = true
	} else {
		result.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode())
	}
	return result
}
