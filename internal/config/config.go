package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

// Config stores runtime configuration for the worker.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string

	DBURL                   string
	DBDisablePreparedBinary bool

	CacheEnabled bool
	CacheTTL     time.Duration

	// TournamentID is the tournament newly discovered matches are filed
	// under. Empty disables match discovery; only pre-existing matches are
	// synced then.
	TournamentID string

	// RunInterval of zero means run one pipeline pass and exit.
	RunInterval          time.Duration
	MatchClaimTTL        time.Duration
	CaptureWorkers       int
	LiveScoreConcurrency int

	CricAPIEnabled               bool
	CricAPIBaseURL               string
	CricAPIKey                   string
	CricAPITimeout               time.Duration
	CricAPIMaxRetries            int
	CricAPICircuitEnabled        bool
	CricAPICircuitFailureCount   int
	CricAPICircuitOpenTimeout    time.Duration
	CricAPICircuitHalfOpenMaxReq int

	CricmonksEnabled               bool
	CricmonksBaseURL               string
	CricmonksToken                 string
	CricmonksTimeout               time.Duration
	CricmonksMaxRetries            int
	CricmonksCircuitEnabled        bool
	CricmonksCircuitFailureCount   int
	CricmonksCircuitOpenTimeout    time.Duration
	CricmonksCircuitHalfOpenMaxReq int

	WebhookEnabled               bool
	WebhookEndpoint              string
	WebhookToken                 string
	WebhookTimeout               time.Duration
	WebhookRetries               int
	WebhookCircuitEnabled        bool
	WebhookCircuitFailureCount   int
	WebhookCircuitOpenTimeout    time.Duration
	WebhookCircuitHalfOpenMaxReq int

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	LogLevel logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	tournamentID := strings.TrimSpace(getEnv("TOURNAMENT_ID", ""))

	runInterval, err := time.ParseDuration(getEnv("RUN_INTERVAL", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RUN_INTERVAL: %w", err)
	}
	if runInterval < 0 {
		return Config{}, fmt.Errorf("RUN_INTERVAL must be >= 0")
	}

	matchClaimTTL, err := time.ParseDuration(getEnv("MATCH_CLAIM_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_CLAIM_TTL: %w", err)
	}
	if matchClaimTTL <= 0 {
		return Config{}, fmt.Errorf("MATCH_CLAIM_TTL must be > 0")
	}

	captureWorkers, err := getEnvAsInt("CAPTURE_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse CAPTURE_WORKERS: %w", err)
	}
	if captureWorkers < 1 {
		return Config{}, fmt.Errorf("CAPTURE_WORKERS must be >= 1")
	}
	liveScoreConcurrency, err := getEnvAsInt("LIVE_SCORE_CONCURRENCY", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVE_SCORE_CONCURRENCY: %w", err)
	}
	if liveScoreConcurrency < 1 {
		return Config{}, fmt.Errorf("LIVE_SCORE_CONCURRENCY must be >= 1")
	}

	cricAPIEnabled, err := strconv.ParseBool(getEnv("CRICAPI_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_ENABLED: %w", err)
	}
	cricAPIKey := strings.TrimSpace(getEnv("CRICAPI_KEY", ""))
	if cricAPIEnabled && cricAPIKey == "" {
		return Config{}, fmt.Errorf("CRICAPI_KEY is required when CRICAPI_ENABLED=true")
	}
	cricAPITimeout, err := time.ParseDuration(getEnv("CRICAPI_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_TIMEOUT: %w", err)
	}
	if cricAPITimeout <= 0 {
		return Config{}, fmt.Errorf("CRICAPI_TIMEOUT must be > 0")
	}
	cricAPIMaxRetries, err := getEnvAsInt("CRICAPI_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_MAX_RETRIES: %w", err)
	}
	if cricAPIMaxRetries < 0 {
		return Config{}, fmt.Errorf("CRICAPI_MAX_RETRIES must be >= 0")
	}
	cricAPICircuitEnabled, err := strconv.ParseBool(getEnv("CRICAPI_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_CIRCUIT_ENABLED: %w", err)
	}
	cricAPICircuitFailureCount, err := getEnvAsInt("CRICAPI_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cricAPICircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("CRICAPI_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cricAPICircuitOpenTimeout, err := time.ParseDuration(getEnv("CRICAPI_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if cricAPICircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("CRICAPI_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cricAPICircuitHalfOpenMaxReq, err := getEnvAsInt("CRICAPI_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICAPI_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cricAPICircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("CRICAPI_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	cricmonksEnabled, err := strconv.ParseBool(getEnv("CRICMONKS_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_ENABLED: %w", err)
	}
	cricmonksToken := strings.TrimSpace(getEnv("CRICMONKS_TOKEN", ""))
	if cricmonksEnabled && cricmonksToken == "" {
		return Config{}, fmt.Errorf("CRICMONKS_TOKEN is required when CRICMONKS_ENABLED=true")
	}
	cricmonksTimeout, err := time.ParseDuration(getEnv("CRICMONKS_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_TIMEOUT: %w", err)
	}
	if cricmonksTimeout <= 0 {
		return Config{}, fmt.Errorf("CRICMONKS_TIMEOUT must be > 0")
	}
	cricmonksMaxRetries, err := getEnvAsInt("CRICMONKS_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_MAX_RETRIES: %w", err)
	}
	if cricmonksMaxRetries < 0 {
		return Config{}, fmt.Errorf("CRICMONKS_MAX_RETRIES must be >= 0")
	}
	cricmonksCircuitEnabled, err := strconv.ParseBool(getEnv("CRICMONKS_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_CIRCUIT_ENABLED: %w", err)
	}
	cricmonksCircuitFailureCount, err := getEnvAsInt("CRICMONKS_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cricmonksCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("CRICMONKS_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cricmonksCircuitOpenTimeout, err := time.ParseDuration(getEnv("CRICMONKS_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if cricmonksCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("CRICMONKS_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cricmonksCircuitHalfOpenMaxReq, err := getEnvAsInt("CRICMONKS_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICMONKS_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cricmonksCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("CRICMONKS_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	if !cricAPIEnabled && !cricmonksEnabled {
		return Config{}, fmt.Errorf("at least one provider must be enabled (CRICAPI_ENABLED or CRICMONKS_ENABLED)")
	}

	webhookEnabled, err := strconv.ParseBool(getEnv("WEBHOOK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_ENABLED: %w", err)
	}
	webhookEndpoint := strings.TrimSpace(getEnv("WEBHOOK_ENDPOINT", ""))
	if webhookEnabled && webhookEndpoint == "" {
		return Config{}, fmt.Errorf("WEBHOOK_ENDPOINT is required when WEBHOOK_ENABLED=true")
	}
	webhookTimeout, err := time.ParseDuration(getEnv("WEBHOOK_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_TIMEOUT: %w", err)
	}
	if webhookTimeout <= 0 {
		return Config{}, fmt.Errorf("WEBHOOK_TIMEOUT must be > 0")
	}
	webhookRetries, err := getEnvAsInt("WEBHOOK_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_RETRIES: %w", err)
	}
	if webhookRetries < 0 {
		return Config{}, fmt.Errorf("WEBHOOK_RETRIES must be >= 0")
	}
	webhookCircuitEnabled, err := strconv.ParseBool(getEnv("WEBHOOK_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_CIRCUIT_ENABLED: %w", err)
	}
	webhookCircuitFailureCount, err := getEnvAsInt("WEBHOOK_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if webhookCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("WEBHOOK_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	webhookCircuitOpenTimeout, err := time.ParseDuration(getEnv("WEBHOOK_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if webhookCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("WEBHOOK_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	webhookCircuitHalfOpenMaxReq, err := getEnvAsInt("WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if webhookCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                  appEnv,
		ServiceName:             getEnv("APP_SERVICE_NAME", "points-pipeline"),
		ServiceVersion:          getEnv("APP_SERVICE_VERSION", "dev"),
		DBURL:                   dbURL,
		DBDisablePreparedBinary: dbDisablePreparedBinary,
		CacheEnabled:            cacheEnabled,
		CacheTTL:                cacheTTL,
		TournamentID:            tournamentID,
		RunInterval:             runInterval,
		MatchClaimTTL:           matchClaimTTL,
		CaptureWorkers:          captureWorkers,
		LiveScoreConcurrency:    liveScoreConcurrency,

		CricAPIEnabled:               cricAPIEnabled,
		CricAPIBaseURL:               strings.TrimSpace(getEnv("CRICAPI_BASE_URL", "https://api.cricapi.com/v1")),
		CricAPIKey:                   cricAPIKey,
		CricAPITimeout:               cricAPITimeout,
		CricAPIMaxRetries:            cricAPIMaxRetries,
		CricAPICircuitEnabled:        cricAPICircuitEnabled,
		CricAPICircuitFailureCount:   cricAPICircuitFailureCount,
		CricAPICircuitOpenTimeout:    cricAPICircuitOpenTimeout,
		CricAPICircuitHalfOpenMaxReq: cricAPICircuitHalfOpenMaxReq,

		CricmonksEnabled:               cricmonksEnabled,
		CricmonksBaseURL:               strings.TrimSpace(getEnv("CRICMONKS_BASE_URL", "https://cricket.sportmonks.com/api/v2.0")),
		CricmonksToken:                 cricmonksToken,
		CricmonksTimeout:               cricmonksTimeout,
		CricmonksMaxRetries:            cricmonksMaxRetries,
		CricmonksCircuitEnabled:        cricmonksCircuitEnabled,
		CricmonksCircuitFailureCount:   cricmonksCircuitFailureCount,
		CricmonksCircuitOpenTimeout:    cricmonksCircuitOpenTimeout,
		CricmonksCircuitHalfOpenMaxReq: cricmonksCircuitHalfOpenMaxReq,

		WebhookEnabled:               webhookEnabled,
		WebhookEndpoint:              webhookEndpoint,
		WebhookToken:                 strings.TrimSpace(getEnv("WEBHOOK_TOKEN", "")),
		WebhookTimeout:               webhookTimeout,
		WebhookRetries:               webhookRetries,
		WebhookCircuitEnabled:        webhookCircuitEnabled,
		WebhookCircuitFailureCount:   webhookCircuitFailureCount,
		WebhookCircuitOpenTimeout:    webhookCircuitOpenTimeout,
		WebhookCircuitHalfOpenMaxReq: webhookCircuitHalfOpenMaxReq,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,

		LogLevel: parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
