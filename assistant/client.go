package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tripline/models"
)

// Message is one turn of the conversation sent to the assistant service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ItineraryContext is the schedule snapshot attached to every request so
// the assistant answers against the user's actual plan.
type ItineraryContext struct {
	Itinerary   models.Itinerary      `json:"itinerary"`
	Schedule    map[int][]models.Stop `json:"schedule"`
	GeneratedAt string                `json:"generatedAt"`
}

type request struct {
	Messages []Message         `json:"messages"`
	Context  *ItineraryContext `json:"context,omitempty"`
}

type response struct {
	Message Message `json:"message"`
}

// Client talks to the external trip assistant service. The reply text may
// carry a trailing structured payload; callers hand it to aiproto.Parse.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewFromEnv builds a client from ASSISTANT_URL and ASSISTANT_API_KEY.
func NewFromEnv() *Client {
	return &Client{
		endpoint: os.Getenv("ASSISTANT_URL"),
		apiKey:   os.Getenv("ASSISTANT_API_KEY"),
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Configured() bool { return c.endpoint != "" }

// Send posts the conversation plus itinerary context and returns the
// assistant's raw reply text.
func (c *Client) Send(ctx context.Context, messages []Message, itinCtx *ItineraryContext) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("assistant endpoint is not configured")
	}
	if itinCtx != nil {
		itinCtx.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(request{Messages: messages, Context: itinCtx})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("assistant returned %d: %s", resp.StatusCode, snippet)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("assistant reply decode: %w", err)
	}
	return out.Message.Content, nil
}
