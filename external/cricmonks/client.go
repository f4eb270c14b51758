package cricmonks

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
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
	ProviderName = "cricmonks"

	defaultBaseURL = "https://cricket.sportmonks.com/api/v2.0"

	notStartedCode = "NS"
)

var tokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)
var errCricmonksTransient = crerr.New("cricmonks transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the cricmonks REST API. Unlike cricapi, scorecards arrive
// as flat per-player arrays already aggregated across innings, so mapping is
// mostly a field rename pass.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
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
		token:          strings.TrimSpace(cfg.Token),
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
	raw, err := c.doJSON(ctx, "/fixtures/"+url.PathEscape(externalID)+"/scorecard", nil, &envelope)
	if err != nil {
		return usecase.ExternalScorecard{}, fmt.Errorf("fetch scorecard id=%s: %w", externalID, err)
	}

	data := envelope.Data
	card := usecase.ExternalScorecard{
		State:      classifyFixtureState(data.StatusCode, data.WinnerTeamID),
		StatusText: strings.TrimSpace(data.Note),
		Raw:        raw,
	}
	if card.StatusText == "" {
		card.StatusText = strings.TrimSpace(data.StatusCode)
	}

	for _, row := range data.Batting {
		id := strings.TrimSpace(row.PlayerID)
		if id == "" {
			c.logger.WarnContext(ctx, "skipping batting row without player id", "match_id", externalID)
			continue
		}
		card.Batting = append(card.Batting, usecase.ExternalBatting{
			PlayerExternalID: id,
			PlayerName:       strings.TrimSpace(row.PlayerName),
			Runs:             row.Score,
			BallsFaced:       row.Balls,
			Sixes:            row.SixScored,
			StrikeRate:       row.Rate,
			DismissalText:    strings.TrimSpace(row.DismissalInfo),
		})
	}
	for _, row := range data.Bowling {
		id := strings.TrimSpace(row.PlayerID)
		if id == "" {
			c.logger.WarnContext(ctx, "skipping bowling row without player id", "match_id", externalID)
			continue
		}
		card.Bowling = append(card.Bowling, usecase.ExternalBowling{
			PlayerExternalID: id,
			PlayerName:       strings.TrimSpace(row.PlayerName),
			Overs:            row.Overs,
			Wickets:          row.Wickets,
			RunsConceded:     row.RunsConceded,
			Maidens:          row.Medians,
			NoBallsWides:     row.Noball + row.Wide,
			Economy:          row.Rate,
		})
	}
	for _, row := range data.Fielding {
		id := strings.TrimSpace(row.PlayerID)
		if id == "" {
			continue
		}
		card.Fielding = append(card.Fielding, usecase.ExternalFielding{
			PlayerExternalID: id,
			PlayerName:       strings.TrimSpace(row.PlayerName),
			Catches:          row.Catches,
			RunOuts:          row.Runouts,
			Stumpings:        row.Stumpings,
		})
	}

	return card, nil
}

func (c *Client) FetchPlayerDetail(ctx context.Context, externalID string) (usecase.ExternalPlayerDetail, error) {
	if strings.TrimSpace(externalID) == "" {
		return usecase.ExternalPlayerDetail{}, fmt.Errorf("player external id is required")
	}

	var envelope playerEnvelope
	if _, err := c.doJSON(ctx, "/players/"+url.PathEscape(externalID), nil, &envelope); err != nil {
		return usecase.ExternalPlayerDetail{}, fmt.Errorf("fetch player id=%s: %w", externalID, err)
	}

	return usecase.ExternalPlayerDetail{
		ExternalID: strings.TrimSpace(envelope.Data.ID),
		Name:       strings.TrimSpace(envelope.Data.FullName),
		Role:       strings.TrimSpace(envelope.Data.Position),
		TeamName:   strings.TrimSpace(envelope.Data.TeamName),
	}, nil
}

func (c *Client) FetchCurrentMatches(ctx context.Context) ([]usecase.ExternalMatchState, error) {
	var envelope livescoresEnvelope
	if _, err := c.doJSON(ctx, "/livescores", nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch livescores: %w", err)
	}

	out := make([]usecase.ExternalMatchState, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		state := classifyFixtureState(item.StatusCode, item.WinnerTeamID)
		out = append(out, usecase.ExternalMatchState{
			ExternalID: id,
			Name:       strings.TrimSpace(item.Name),
			MatchType:  strings.ToLower(strings.TrimSpace(item.Type)),
			StatusText: strings.TrimSpace(item.Note),
			Started:    state != usecase.MatchStateNotStarted,
			Ended:      state == usecase.MatchStateCompleted,
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "cricmonks circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: provider circuit is open", usecase.ErrUpstreamUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("api_token", c.token)

	fullURL := c.baseURL + path + "?" + values.Encode()

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCricmonksCircuitFailure(reqErr) {
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
			lastErr = fmt.Errorf("%w: send request: %s", errCricmonksTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errCricmonksTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errCricmonksTransient, resp.StatusCode, abbreviateBody(raw))
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
	c.logger.WarnContext(ctx, "cricmonks request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	// Both sentinels stay in the chain: callers match ErrUpstreamUnavailable,
	// the breaker classification matches the transient marker.
	return nil, fmt.Errorf("%w: %w", usecase.ErrUpstreamUnavailable, lastErr)
}

// classifyFixtureState: a winner id means the fixture is decided even when
// the status code lags behind.
func classifyFixtureState(statusCode, winnerTeamID string) usecase.MatchState {
	code := strings.ToUpper(strings.TrimSpace(statusCode))
	if strings.TrimSpace(winnerTeamID) != "" || code == "FINISHED" {
		return usecase.MatchStateCompleted
	}
	if code == "" || code == notStartedCode {
		return usecase.MatchStateNotStarted
	}
	return usecase.MatchStateLive
}

type scorecardEnvelope struct {
	Data fixtureScorecard `json:"data"`
}

type fixtureScorecard struct {
	ID           string        `json:"id"`
	StatusCode   string        `json:"status"`
	Note         string        `json:"note"`
	WinnerTeamID string        `json:"winner_team_id"`
	Batting      []battingRow  `json:"batting"`
	Bowling      []bowlingRow  `json:"bowling"`
	Fielding     []fieldingRow `json:"fielding"`
}

type battingRow struct {
	PlayerID      string  `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	Score         int     `json:"score"`
	Balls         int     `json:"ball"`
	SixScored     int     `json:"six_x"`
	Rate          float64 `json:"rate"`
	DismissalInfo string  `json:"dismissal_info"`
}

type bowlingRow struct {
	PlayerID     string  `json:"player_id"`
	PlayerName   string  `json:"player_name"`
	Overs        float64 `json:"overs"`
	Wickets      int     `json:"wickets"`
	RunsConceded int     `json:"runs"`
	Medians      int     `json:"medians"`
	Noball       int     `json:"noball"`
	Wide         int     `json:"wide"`
	Rate         float64 `json:"rate"`
}

type fieldingRow struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Catches    int    `json:"catch_stumps"`
	Runouts    int    `json:"runout"`
	Stumpings  int    `json:"stumping"`
}

type livescoresEnvelope struct {
	Data []livescoreItem `json:"data"`
}

type livescoreItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	StatusCode   string `json:"status"`
	Note         string `json:"note"`
	WinnerTeamID string `json:"winner_team_id"`
}

type playerEnvelope struct {
	Data playerData `json:"data"`
}

type playerData struct {
	ID       string `json:"id"`
	FullName string `json:"fullname"`
	Position string `json:"position"`
	TeamName string `json:"team_name"`
}

func isCricmonksCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errCricmonksTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return tokenParamRegex.ReplaceAllString(value, "api_token=REDACTED")
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("api_token") {
		query.Set("api_token", "REDACTED")
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
