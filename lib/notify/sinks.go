package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/paddock/raceline/utils/httputil"
	"github.com/paddock/raceline/utils/log"

	jsoniter "github.com/json-iterator/go"
)

// LogSink writes events to the global logger.
type LogSink struct{}

// Name implements Sink.
func (LogSink) Name() string { return "log" }

// Send implements Sink.
func (LogSink) Send(_ context.Context, e Event) error {
	args := []interface{}{"event_id", e.ID, "kind", e.Kind}
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	switch e.Kind {
	case KindRecovered:
		log.Infow(e.Title+": "+e.Message, args...)
	default:
		log.Warnw(e.Title+": "+e.Message, args...)
	}
	return nil
}

// WebhookConfig defines a JSON webhook sink. The URL is usually supplied
// through the environment rather than YAML.
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookSink POSTs each event as JSON to a URL.
type WebhookSink struct {
	config    WebhookConfig
	transport http.RoundTripper
}

// NewWebhookSink creates a new WebhookSink.
func NewWebhookSink(config WebhookConfig, transport http.RoundTripper) (*WebhookSink, error) {
	if config.URL == "" {
		return nil, errors.New("webhook url required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &WebhookSink{config, transport}, nil
}

// Name implements Sink.
func (s *WebhookSink) Name() string { return "webhook" }

type webhookPayload struct {
	Event
	Text string `json:"text"`
}

// Send implements Sink.
func (s *WebhookSink) Send(ctx context.Context, e Event) error {
	b, err := jsoniter.Marshal(webhookPayload{e, fmt.Sprintf("[%s] %s: %s", e.Kind, e.Title, e.Message)})
	if err != nil {
		return fmt.Errorf("marshal event: %s", err)
	}
	resp, err := httputil.Post(
		s.config.URL,
		httputil.SendContext(ctx),
		httputil.SendBody(bytes.NewReader(b)),
		httputil.SendHeaders(map[string]string{"Content-Type": "application/json"}),
		httputil.SendTimeout(s.config.Timeout),
		httputil.SendTransport(s.transport),
		httputil.SendAcceptedCodes(http.StatusOK, http.StatusAccepted, http.StatusNoContent))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
