package cricapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/wicketpool/points-pipeline/internal/platform/logging"
	"github.com/wicketpool/points-pipeline/internal/platform/resilience"
	"github.com/wicketpool/points-pipeline/internal/usecase"
)

const (
	// ProviderName is the registry key matches bound to this provider carry.
	ProviderName = "cricapi"

	defaultBaseURL = "https://api.cricapi.com/v1"
)

var apiKeyParamRegex = regexp.MustCompile(`apikey=[^&\s"']+`)
var errCricAPITransient = crerr.New("cricapi transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the cricapi v1 REST API. Scorecards come back with one
// nested section per innings; the client flattens them into the neutral
// scorecard shape and aggregates per-player fielding credits across innings.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) FetchScorecard(ctx context.Context, externalID string) (usecase.ExternalScorecard, error) {
	if strings.TrimSpace(externalID) == "" {
		return usecase.ExternalScorecard{}, fmt.Errorf("match external id is required")
	}

	var envelope scorecardEnvelope
	raw, err := c.doJSON(ctx, "/match_scorecard", map[string]string{"id": externalID}, &envelope)
	if err != nil {
		return usecase.ExternalScorecard{}, fmt.Errorf("fetch scorecard id=%s: %w", externalID, err)
	}
	if !strings.EqualFold(envelope.Status, "success") {
		return usecase.ExternalScorecard{}, fmt.Errorf("%w: provider status=%q", usecase.ErrUpstreamUnavailable, envelope.Status)
	}

	card := usecase.ExternalScorecard{
		State:      classifyMatchState(envelope.Data),
		StatusText: strings.TrimSpace(envelope.Data.Status),
		Raw:        raw,
	}

	fielding := make(map[string]*usecase.ExternalFielding)
	for _, innings := range envelope.Data.Scorecard {
		for _, item := range innings.Batting {
			entry, ok := mapBattingEntry(item)
			if !ok {
				c.logger.WarnContext(ctx, "skipping malformed batting row", "match_id", externalID)
				continue
			}
			card.Batting = append(card.Batting, entry)
		}
		for _, item := range innings.Bowling {
			entry, ok := mapBowlingEntry(item)
			if !ok {
				c.logger.WarnContext(ctx, "skipping malformed bowling row", "match_id", externalID)
				continue
			}
			card.Bowling = append(card.Bowling, entry)
		}
		for _, item := range innings.Catching {
			accumulateFielding(fielding, item)
		}
	}
	for _, entry := range fielding {
		card.Fielding = append(card.Fielding, *entry)
	}

	return card, nil
}

func (c *Client) FetchPlayerDetail(ctx context.Context, externalID string) (usecase.ExternalPlayerDetail, error) {
	if strings.TrimSpace(externalID) == "" {
		return usecase.ExternalPlayerDetail{}, fmt.Errorf("player external id is required")
	}

	var envelope playerInfoEnvelope
	if _, err := c.doJSON(ctx, "/players_info", map[string]string{"id": externalID}, &envelope); err != nil {
		return usecase.ExternalPlayerDetail{}, fmt.Errorf("fetch player info id=%s: %w", externalID, err)
	}
	if !strings.EqualFold(envelope.Status, "success") {
		return usecase.ExternalPlayerDetail{}, fmt.Errorf("%w: provider status=%q", usecase.ErrUpstreamUnavailable, envelope.Status)
	}

	return usecase.ExternalPlayerDetail{
		ExternalID: strings.TrimSpace(envelope.Data.ID),
		Name:       strings.TrimSpace(envelope.Data.Name),
		Role:       strings.TrimSpace(envelope.Data.Role),
		TeamName:   strings.TrimSpace(envelope.Data.Country),
	}, nil
}

func (c *Client) FetchCurrentMatches(ctx context.Context) ([]usecase.ExternalMatchState, error) {
	var envelope currentMatchesEnvelope
	if _, err := c.doJSON(ctx, "/currentMatches", map[string]string{"offset": "0"}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch current matches: %w", err)
	}
	if !strings.EqualFold(envelope.Status, "success") {
		return nil, fmt.Errorf("%w: provider status=%q", usecase.ErrUpstreamUnavailable, envelope.Status)
	}

	out := make([]usecase.ExternalMatchState, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		out = append(out, usecase.ExternalMatchState{
			ExternalID: id,
			Name:       strings.TrimSpace(item.Name),
			MatchType:  strings.ToLower(strings.TrimSpace(item.MatchType)),
			StatusText: strings.TrimSpace(item.Status),
			Started:    item.MatchStarted,
			Ended:      item.MatchEnded || strings.TrimSpace(item.MatchWinner) != "",
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "cricapi circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: provider circuit is open", usecase.ErrUpstreamUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("apikey", c.apiKey)

	fullURL := c.baseURL + path + "?" + values.Encode()

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCricAPICircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errCricAPITransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errCricAPITransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errCricAPITransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrUpstreamUnavailable, resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "cricapi request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	// Both sentinels stay in the chain: callers match ErrUpstreamUnavailable,
	// the breaker classification matches the transient marker.
	return nil, fmt.Errorf("%w: %w", usecase.ErrUpstreamUnavailable, lastErr)
}

// classifyMatchState: completed iff the provider reports a result. A decided
// knockout abandoned with no result still arrives with matchEnded=true.
func classifyMatchState(data scorecardData) usecase.MatchState {
	if data.MatchEnded || strings.TrimSpace(data.MatchWinner) != "" {
		return usecase.MatchStateCompleted
	}
	if data.MatchStarted {
		return usecase.MatchStateLive
	}
	return usecase.MatchStateNotStarted
}

func mapBattingEntry(item map[string]any) (usecase.ExternalBatting, bool) {
	ref := relationDataMap(item["batsman"])
	id := strings.TrimSpace(getString(ref, "id"))
	if id == "" {
		return usecase.ExternalBatting{}, false
	}
	return usecase.ExternalBatting{
		PlayerExternalID: id,
		PlayerName:       strings.TrimSpace(getString(ref, "name")),
		Runs:             getInt(item, "r"),
		BallsFaced:       getInt(item, "b"),
		Sixes:            getInt(item, "6s"),
		StrikeRate:       getFloat(item, "sr"),
		DismissalText:    strings.TrimSpace(getString(item, "dismissal-text")),
	}, true
}

func mapBowlingEntry(item map[string]any) (usecase.ExternalBowling, bool) {
	ref := relationDataMap(item["bowler"])
	id := strings.TrimSpace(getString(ref, "id"))
	if id == "" {
		return usecase.ExternalBowling{}, false
	}
	return usecase.ExternalBowling{
		PlayerExternalID: id,
		PlayerName:       strings.TrimSpace(getString(ref, "name")),
		Overs:            getFloat(item, "o"),
		Wickets:          getInt(item, "w"),
		RunsConceded:     getInt(item, "r"),
		Maidens:          getInt(item, "m"),
		NoBallsWides:     getInt(item, "nb") + getInt(item, "wd"),
		Economy:          getFloat(item, "eco"),
	}, true
}

func accumulateFielding(byPlayer map[string]*usecase.ExternalFielding, item map[string]any) {
	ref := relationDataMap(item["catcher"])
	id := strings.TrimSpace(getString(ref, "id"))
	if id == "" {
		return
	}
	entry, ok := byPlayer[id]
	if !ok {
		entry = &usecase.ExternalFielding{
			PlayerExternalID: id,
			PlayerName:       strings.TrimSpace(getString(ref, "name")),
		}
		byPlayer[id] = entry
	}
	entry.Catches += getInt(item, "catch")
	entry.RunOuts += getInt(item, "runout")
	entry.Stumpings += getInt(item, "stumped")
}

type scorecardEnvelope struct {
	Status string        `json:"status"`
	Data   scorecardData `json:"data"`
}

type scorecardData struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	MatchType    string        `json:"matchType"`
	MatchWinner  string        `json:"matchWinner"`
	MatchStarted bool          `json:"matchStarted"`
	MatchEnded   bool          `json:"matchEnded"`
	Scorecard    []inningsCard `json:"scorecard"`
}

// Row shapes vary between match types, so innings sections decode loosely
// and malformed rows are dropped one by one instead of failing the match.
type inningsCard struct {
	Batting  []map[string]any `json:"batting"`
	Bowling  []map[string]any `json:"bowling"`
	Catching []map[string]any `json:"catching"`
}

type currentMatchesEnvelope struct {
	Status string             `json:"status"`
	Data   []currentMatchItem `json:"data"`
}

type currentMatchItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MatchType    string `json:"matchType"`
	Status       string `json:"status"`
	MatchWinner  string `json:"matchWinner"`
	MatchStarted bool   `json:"matchStarted"`
	MatchEnded   bool   `json:"matchEnded"`
}

type playerInfoEnvelope struct {
	Status string         `json:"status"`
	Data   playerInfoData `json:"data"`
}

type playerInfoData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Country string `json:"country"`
}

func relationDataMap(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch typed := m[key].(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

func getInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch typed := m[key].(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func getFloat(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch typed := m[key].(type) {
	case float64:
		return typed
	case int:
		return float64(typed)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func isCricAPICircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errCricAPITransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apikey=REDACTED")
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("apikey") {
		query.Set("apikey", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
