package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Discord rejects messages over 2000 chars; stay under with headroom
const maxChunkLen = 1900

// Client posts messages to a Discord webhook. An empty webhook URL
// turns every send into a no-op, which keeps notification wiring
// unconditional at the call sites.
type Client struct {
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Discord webhook client
func NewClient(webhookURL string, log zerolog.Logger) *Client {
	return &Client{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "discord").Logger(),
	}
}

// Send posts content to the webhook, splitting long messages into
// chunks on line boundaries
func (c *Client) Send(content string) error {
	if c.webhookURL == "" {
		c.log.Debug().Msg("No webhook configured, dropping message")
		return nil
	}
	if content == "" {
		return nil
	}

	for _, chunk := range splitMessage(content) {
		if err := c.post(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) post(content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	resp, err := c.client.Post(c.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// splitMessage breaks content into chunks no longer than maxChunkLen,
// preferring line boundaries so a chunk never ends mid-sentence
func splitMessage(content string) []string {
	if len(content) <= maxChunkLen {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(content, "\n") {
		// A single oversized line is cut hard
		for len(line) > maxChunkLen {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:maxChunkLen])
			line = line[maxChunkLen:]
		}
		if current.Len()+len(line)+1 > maxChunkLen {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
