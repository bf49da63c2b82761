package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config carries everything the bot reads from the environment.
type Config struct {
	ProjectID         string
	DiscordWebhookURL string
	Port              string

	// Source document locator.
	SourceOwner   string
	SourceRepo    string
	SourceBranch  string
	SourcePath    string
	SourceBaseURL string
	AllowedHosts  []string

	PollInterval    time.Duration
	NotifyInterval  time.Duration
	StreakThreshold int

	// Cron specs, evaluated in UTC.
	DailyRecapSpec  string
	WeeklyResetSpec string

	GeminiAPIKey string
	GeminiModel  string
}

const defaultSourceBaseURL = "https://raw.githubusercontent.com"

func Load() (*Config, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required but not set")
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Warn("DISCORD_WEBHOOK_URL not set, Discord notifications will be skipped")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	notifyInterval, err := durationEnv("NOTIFY_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	streakThreshold := 10
	if v := os.Getenv("STREAK_THRESHOLD"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STREAK_THRESHOLD %q: %w", v, err)
		}
		streakThreshold = parsed
	}

	sourceBaseURL := envOr("SOURCE_BASE_URL", defaultSourceBaseURL)

	cfg := &Config{
		ProjectID:         projectID,
		DiscordWebhookURL: discordWebhookURL,
		Port:              port,
		SourceOwner:       envOr("SOURCE_OWNER", "SimplifyJobs"),
		SourceRepo:        envOr("SOURCE_REPO", "Summer2026-Internships"),
		SourceBranch:      envOr("SOURCE_BRANCH", "dev"),
		SourcePath:        envOr("SOURCE_PATH", "README.md"),
		SourceBaseURL:     sourceBaseURL,
		AllowedHosts:      allowedHosts(sourceBaseURL),
		PollInterval:      pollInterval,
		NotifyInterval:    notifyInterval,
		StreakThreshold:   streakThreshold,
		DailyRecapSpec:    envOr("DAILY_RECAP_SPEC", "0 0 * * *"),
		WeeklyResetSpec:   envOr("WEEKLY_RESET_SPEC", "0 0 * * 1"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOr("GEMINI_MODEL", "gemini-2.0-flash"),
	}
	return cfg, nil
}

// allowedHosts always permits the default raw-content host and adds the
// configured base URL's host when it was overridden.
func allowedHosts(baseURL string) []string {
	hosts := []string{"raw.githubusercontent.com"}
	if parsed, err := url.Parse(baseURL); err == nil {
		if h := parsed.Hostname(); h != "" && h != hosts[0] {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}
