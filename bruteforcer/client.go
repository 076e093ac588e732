package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/rulegrid/game/engine"
	"github.com/wricardo/rulegrid/game/service"
)

// Client plays one session over the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// do sends body as JSON and decodes a 2xx response into out
func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) CreateSession(levelID string) (*service.SessionInfo, error) {
	var session service.SessionInfo
	if err := c.do(http.MethodPost, "/api/sessions", map[string]string{"level_id": levelID}, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return &session, nil
}

func (c *Client) GetSession() (*service.SessionInfo, error) {
	var session service.SessionInfo
	if err := c.do(http.MethodGet, c.sessionPath(""), nil, &session); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

type ResetResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func (c *Client) Reset() (*engine.GameState, error) {
	var resp ResetResponse
	if err := c.do(http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

func (c *Client) BulkMove(directions []string) (*service.BulkMoveResult, error) {
	var result service.BulkMoveResult
	if err := c.do(http.MethodPost, c.sessionPath("/bulk-move"), map[string][]string{"moves": directions}, &result); err != nil {
		return nil, fmt.Errorf("bulk move: %w", err)
	}
	return &result, nil
}

// Replay sends moves in API-sized batches until the level is won
func (c *Client) Replay(moves []string, delay time.Duration) (*service.BulkMoveResult, error) {
	var last *service.BulkMoveResult
	for start := 0; start < len(moves); start += service.MaxBulkMoves {
		end := min(start+service.MaxBulkMoves, len(moves))
		result, err := c.BulkMove(moves[start:end])
		if err != nil {
			return last, err
		}
		last = result
		if result.Win {
			return result, nil
		}
		if result.MovesExecuted < end-start {
			return result, fmt.Errorf("replay stopped at move %d: %s", start+result.StoppedOnMove, result.StoppedReason)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return last, nil
}
