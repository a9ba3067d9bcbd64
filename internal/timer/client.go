package timer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to the backend's timer routes. It implements RemoteAPI and
// doubles as the Beacon transport for teardown delivery.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	// beacon requests must not linger; the process is going away.
	beaconHTTP *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      accessToken,
		http:       &http.Client{Timeout: 15 * time.Second},
		beaconHTTP: &http.Client{Timeout: 2 * time.Second},
	}
}

// SetToken swaps the bearer token after a refresh.
func (c *Client) SetToken(accessToken string) {
	c.token = accessToken
}

func (c *Client) StartSession(ctx context.Context, sessionID, topicID uuid.UUID) error {
	body := map[string]string{
		"session_id": sessionID.String(),
		"topic_id":   topicID.String(),
	}
	return c.post(ctx, "/api/v1/timer/start", body)
}

func (c *Client) StopSession(ctx context.Context, sessionID uuid.UUID, durationMs int64) error {
	body := map[string]interface{}{"duration_ms": durationMs}
	return c.post(ctx, fmt.Sprintf("/api/v1/timer/%s/stop", sessionID), body)
}

func (c *Client) Heartbeat(ctx context.Context, sessionID uuid.UUID, totalMs int64) error {
	body := map[string]interface{}{"elapsed_ms": totalMs}
	return c.post(ctx, fmt.Sprintf("/api/v1/timer/%s/heartbeat", sessionID), body)
}

func (c *Client) Totals(ctx context.Context, topicIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	ids := make([]string, 0, len(topicIDs))
	for _, id := range topicIDs {
		ids = append(ids, id.String())
	}

	endpoint := c.baseURL + "/api/v1/timer/totals?topic_ids=" + url.QueryEscape(strings.Join(ids, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch totals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch totals: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Totals map[string]int64 `json:"totals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode totals: %w", err)
	}

	totals := make(map[uuid.UUID]int64, len(payload.Totals))
	for idStr, total := range payload.Totals {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		totals[id] = total
	}
	return totals, nil
}

// Send is the beacon transport: a short-timeout POST whose outcome nobody
// waits for. The token travels in the body because teardown requests cannot
// reliably carry headers.
func (c *Client) Send(sessionID uuid.UUID, durationMs int64) {
	body, err := json.Marshal(map[string]interface{}{
		"session_id":  sessionID.String(),
		"duration_ms": durationMs,
		"token":       c.token,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/timer/beacon", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.beaconHTTP.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
