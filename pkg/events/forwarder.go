package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Forwarder POSTs every published event to an external HTTP endpoint,
// giving the hybrid deployment mode a durable event consumer outside
// this process. Publish returns a transport failure or a response
// status of 300 or above as an error; Tee pairs a Forwarder with a Hub
// so that such a failure never keeps the in-memory Hub from seeing the
// event.
type Forwarder struct {
	endpointURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewForwarder constructs a Forwarder. Returns nil when cfg carries no
// EventSinkEndpoint, so callers can unconditionally check for a nil
// result rather than branching on config shape themselves.
func NewForwarder(cfg *config.ArtifactsConfig) *Forwarder {
	if cfg == nil || cfg.EventSinkEndpoint == "" {
		return nil
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}

	return &Forwarder{
		endpointURL: cfg.EventSinkEndpoint,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter:     limiter,
	}
}

// Publish sends event as a JSON POST to the configured endpoint.
func (f *Forwarder) Publish(ctx context.Context, event models.Event) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("events: forwarder rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpointURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("events: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("events: post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("events: sink endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Tee publishes to a local Hub and, if forwarder is non-nil, best-effort
// forwards the same event to a remote sink. Forwarding failures go to
// OnForwardError (or are logged when it is nil), not propagated: the
// Hub's in-process delivery
// is the half every other component depends on for correctness.
type Tee struct {
	Hub            *Hub
	Forwarder      *Forwarder
	OnForwardError func(event models.Event, err error)
}

// Publish implements the Sink interface shared by pkg/audio, pkg/summary,
// and pkg/scheduler.
func (t *Tee) Publish(ctx context.Context, event models.Event) error {
	if err := t.Hub.Publish(ctx, event); err != nil {
		return err
	}

	if t.Forwarder != nil {
		if err := t.Forwarder.Publish(ctx, event); err != nil {
			if t.OnForwardError != nil {
				t.OnForwardError(event, err)
			} else {
				slog.Warn("Failed to forward event to sink endpoint",
					"event_type", event.Type, "subject", event.Subject, "error", err)
			}
		}
	}
	return nil
}
