// Package lotteryclient talks to the draw API over HTTP. Error envelopes are
// turned back into the typed errors of the lottery package.
package lotteryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
)

// Client represents a draw API client
type Client struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token  string
	client *http.Client
}

// APIError is an error envelope whose code has no typed counterpart.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (%d %s): %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

// NewClient creates a new draw API client
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp, nil
}

func (c *Client) ListActivities(ctx context.Context) ([]models.Activity, error) {
	var out []models.Activity
	return out, c.doJSON(ctx, http.MethodGet, "/activities", nil, &out)
}

func (c *Client) CreateActivity(ctx context.Context, input models.ActivityInput) (*models.Activity, error) {
	var out models.Activity
	if err := c.doJSON(ctx, http.MethodPost, "/activities", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetActivity(ctx context.Context, activityID int64) (*models.ActivityDetail, error) {
	var out models.ActivityDetail
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/activities/%d", activityID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfigureRound(ctx context.Context, activityID int64, input models.RoundInput) (*models.Round, error) {
	var out models.Round
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/activities/%d/rounds", activityID), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRound sends only the non-nil fields of patch.
func (c *Client) UpdateRound(ctx context.Context, roundID int64, patch models.RoundUpdate) (*models.Round, error) {
	var out models.Round
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/rounds/%d", roundID), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReorderRounds returns the activity's rounds in their new order.
func (c *Client) ReorderRounds(ctx context.Context, activityID int64, roundIDs []int64) ([]models.Round, error) {
	var out []models.Round
	path := fmt.Sprintf("/activities/%d/rounds/order", activityID)
	return out, c.doJSON(ctx, http.MethodPut, path, models.RoundOrder{RoundIDs: roundIDs}, &out)
}

func (c *Client) GetActivityWinners(ctx context.Context, activityID int64) ([]models.WinnerDetail, error) {
	var out []models.WinnerDetail
	return out, c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/activities/%d/winners", activityID), nil, &out)
}

// ParticipantTemplate downloads the sample roster CSV.
func (c *Client) ParticipantTemplate(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/templates/participants", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /templates/participants: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: "template download failed"}
	}
	return io.ReadAll(resp.Body)
}

// ImportParticipants uploads a roster CSV as the request body.
func (c *Client) ImportParticipants(ctx context.Context, activityID int64, csv io.Reader) (*models.ImportResult, error) {
	var out models.ImportResult
	path := fmt.Sprintf("/activities/%d/participants/import", activityID)
	if err := c.do(ctx, http.MethodPost, path, "text/csv", csv, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAvailableParticipants(ctx context.Context, activityID int64) ([]models.Participant, error) {
	var out []models.Participant
	return out, c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/lottery/available/%d", activityID), nil, &out)
}

func (c *Client) ExecuteDraw(ctx context.Context, roundID int64) (*models.DrawResult, error) {
	var out models.DrawResult
	if err := c.doJSON(ctx, http.MethodPost, "/lottery/draw", map[string]int64{"roundId": roundID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDrawResult(ctx context.Context, roundID int64) ([]models.WinnerDetail, error) {
	var out []models.WinnerDetail
	return out, c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/lottery/results/%d", roundID), nil, &out)
}

// Redraw returns the number of winner rows the server removed.
func (c *Client) Redraw(ctx context.Context, roundID int64) (int, error) {
	var out struct {
		DeletedWinners int `json:"deletedWinners"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/lottery/results/%d", roundID), nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedWinners, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		if typed := lottery.FromCode(env.Code, env.Error, env.Details); typed != nil {
			return typed
		}
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
