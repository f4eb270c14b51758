package notify

import (
	"strings"
	"testing"

	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

func TestNewWebhookPublisher_ValidatesEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewWebhookPublisher(WebhookConfig{Logger: logging.NewNop()}); err == nil {
		t.Fatal("empty endpoint must be rejected")
	}
	if _, err := NewWebhookPublisher(WebhookConfig{Endpoint: "ftp://reports.local", Logger: logging.NewNop()}); err == nil {
		t.Fatal("non-http endpoint must be rejected")
	}

	p, err := NewWebhookPublisher(WebhookConfig{
		Endpoint:    " https://hooks.example.com/runs ",
		BearerToken: " secret ",
		Logger:      logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if p.endpoint != "https://hooks.example.com/runs" {
		t.Fatalf("endpoint not trimmed: %q", p.endpoint)
	}
	if p.bearerToken != "secret" {
		t.Fatalf("token not trimmed: %q", p.bearerToken)
	}
	if p.timeout <= 0 {
		t.Fatal("timeout default not applied")
	}
}

func TestPreviewBody_Caps(t *testing.T) {
	t.Parallel()

	if got := previewBody([]byte(`{"run_id":"abc"}`)); got != `{"run_id":"abc"}` {
		t.Fatalf("short body mismatch: %q", got)
	}

	long := strings.Repeat("a", 600)
	got := previewBody([]byte(long))
	if len(got) != 243 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long body not capped: len=%d", len(got))
	}
}
