package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/wicketpool/points-pipeline/internal/platform/logging"
	"github.com/wicketpool/points-pipeline/internal/platform/resilience"
	"github.com/wicketpool/points-pipeline/internal/usecase"
)

var errWebhookTransient = crerr.New("webhook transient failure")

type WebhookConfig struct {
	Endpoint       string
	BearerToken    string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookPublisher posts run reports to an operator-configured HTTP endpoint.
// Delivery is best effort; the pipeline never blocks on a slow webhook longer
// than the configured timeout per attempt.
type WebhookPublisher struct {
	client         *fasthttp.Client
	endpoint       string
	bearerToken    string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewWebhookPublisher(cfg WebhookConfig) (*WebhookPublisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("webhook endpoint must be an http(s) url")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookPublisher{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		endpoint:       endpoint,
		bearerToken:    strings.TrimSpace(cfg.BearerToken),
		timeout:        timeout,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

func (p *WebhookPublisher) PublishRunReport(ctx context.Context, report usecase.RunReport) error {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "webhook circuit breaker rejected publish", "state", p.breaker.State())
			return fmt.Errorf("webhook circuit is open")
		}
	}

	body, err := sonic.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	err = p.deliver(ctx, body)
	if p.circuitEnabled {
		if err != nil && stderrors.Is(err, errWebhookTransient) {
			p.breaker.RecordFailure()
		} else {
			p.breaker.RecordSuccess()
		}
	}
	if err != nil {
		p.logger.WarnContext(ctx, "run report delivery failed",
			"run_id", report.RunID,
			"error", err,
		)
		return fmt.Errorf("publish run report: %w", err)
	}

	p.logger.DebugContext(ctx, "run report delivered",
		"run_id", report.RunID,
		"preview", previewBody(body),
	)
	return nil
}

func (p *WebhookPublisher) deliver(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(p.endpoint)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		if p.bearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+p.bearerToken)
		}
		req.SetBody(body)

		err := p.client.DoTimeout(req, resp, p.timeout)
		status := resp.StatusCode()
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		switch {
		case err != nil:
			lastErr = fmt.Errorf("%w: send request: %v", errWebhookTransient, err)
		case status >= 200 && status < 300:
			return nil
		case status == fasthttp.StatusTooManyRequests || status >= fasthttp.StatusInternalServerError:
			lastErr = fmt.Errorf("%w: endpoint status=%d", errWebhookTransient, status)
		default:
			return fmt.Errorf("endpoint status=%d", status)
		}

		if attempt == p.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func previewBody(body []byte) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if len(body) > 240 {
		_, _ = buf.Write(body[:240])
		_, _ = buf.WriteString("...")
	} else {
		_, _ = buf.Write(body)
	}
	return buf.String()
}
