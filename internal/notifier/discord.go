package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// Client delivers listing announcements and recap messages to a Discord
// webhook. Delivery is paced by a rate limiter so the producing side can
// hand over whole batches without worrying about per-message delays.
type Client struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
}

func New(webhookURL string, sendInterval time.Duration) *Client {
	if sendInterval <= 0 {
		sendInterval = time.Second
	}
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(sendInterval), 1),
	}
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Color       int                `json:"color,omitempty"`
	Footer      discordEmbedFooter `json:"footer,omitempty"`
}

// Notify posts one embed per new listing, in the order given. Individual
// send failures are collected so a bad message never blocks the rest of the
// batch.
func (c *Client) Notify(ctx context.Context, listings []models.Listing) error {
	if c.webhookURL == "" {
		slog.Info("Webhook URL not configured, skipping notifications", "count", len(listings))
		return nil
	}

	var errs []error
	for _, l := range listings {
		if err := c.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.post(ctx, formatListingEmbed(l)); err != nil {
			slog.Error("Failed to announce listing", "id", l.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendRecap posts a single summary embed (daily recap, reset notices).
func (c *Client) SendRecap(ctx context.Context, title, body string) error {
	if c.webhookURL == "" {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.post(ctx, discordEmbed{
		Title:       title,
		Description: body,
		Color:       3092790,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func formatListingEmbed(l models.Listing) discordEmbed {
	title := fmt.Sprintf("%s %s — %s", l.Category.Emoji(), l.Company, l.Role)
	description := fmt.Sprintf("[Apply here](%s)", l.ApplyURL)
	if l.Location != "" {
		description = fmt.Sprintf("📍 %s\n%s", l.Location, description)
	}

	var footer discordEmbedFooter
	if l.PostedAge != "" {
		footer.Text = "Posted " + l.PostedAge + " ago"
	}

	return discordEmbed{
		Title:       title,
		URL:         l.ApplyURL,
		Description: description,
		Color:       l.Category.Color(),
		Footer:      footer,
	}
}

func (c *Client) post(ctx context.Context, embed discordEmbed) error {
	payload := discordWebhookPayload{Embeds: []discordEmbed{embed}}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
}
