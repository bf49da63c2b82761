package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anishesg/internship-discord-bot/internal/leaderboard"
	"github.com/anishesg/internship-discord-bot/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError sends a short user-facing message; internals stay in the log.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func internalError(w http.ResponseWriter, op string, err error) {
	slog.Error("Request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "Sorry, something went wrong. Please try again.")
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func validDate(date string) bool {
	_, err := time.Parse(models.DateFormat, date)
	return err == nil
}

func parseMetricParam(r *http.Request) (leaderboard.Metric, bool) {
	v := r.URL.Query().Get("metric")
	if v == "" {
		return leaderboard.MetricToday, true
	}
	return leaderboard.ParseMetric(v)
}

func filterListings(listings []models.Listing, keep func(models.Listing) bool) []models.Listing {
	var out []models.Listing
	for _, l := range listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// searchListings matches the query against company, role and location,
// case-insensitively.
func searchListings(listings []models.Listing, query string) []models.Listing {
	q := strings.ToLower(strings.TrimSpace(query))
	return filterListings(listings, func(l models.Listing) bool {
		return strings.Contains(strings.ToLower(l.Company), q) ||
			strings.Contains(strings.ToLower(l.Role), q) ||
			strings.Contains(strings.ToLower(l.Location), q)
	})
}
