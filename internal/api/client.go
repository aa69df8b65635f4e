package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error is a backend rejection. Message carries the collaborator-provided
// "message" field when the response body had one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
}

// Client talks to the GENFIN backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchStatus retrieves the status snapshot for a farmer. seasonID selects a
// past season; zero means the current one.
func (c *Client) FetchStatus(ctx context.Context, farmerID, seasonID int) (*StatusSnapshot, error) {
	path := fmt.Sprintf("/api/farmer/%d/status", farmerID)
	if seasonID > 0 {
		path += "?season_id=" + strconv.Itoa(seasonID)
	}
	var snap StatusSnapshot
	if err := c.do(ctx, http.MethodGet, path, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Register submits a completed registration and returns the new farmer ID.
func (c *Client) Register(ctx context.Context, reg Registration) (int, error) {
	var resp struct {
		FarmerID int `json:"farmer_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/farmer/register", reg, &resp); err != nil {
		return 0, err
	}
	return resp.FarmerID, nil
}

// UploadDocument records a mock document upload against an unlocked stage.
func (c *Client) UploadDocument(ctx context.Context, farmerID, stageNumber int, fileType, fileName string) (string, error) {
	body := struct {
		StageNumber int    `json:"stage_number"`
		FileType    string `json:"file_type"`
		FileName    string `json:"file_name"`
	}{stageNumber, fileType, fileName}

	var resp struct {
		Message string `json:"message"`
	}
	path := fmt.Sprintf("/api/farmer/%d/upload", farmerID)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// IngestReadings submits parsed sensor readings for a farmer.
func (c *Client) IngestReadings(ctx context.Context, farmerID int, readings map[string]float64) (*IngestResult, error) {
	path := "/api/iot/ingest?" + url.Values{"farmer_id": {strconv.Itoa(farmerID)}}.Encode()
	var resp IngestResult
	if err := c.do(ctx, http.MethodPost, path, readings, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenewSeason closes the current season and starts the next loan cycle.
func (c *Client) RenewSeason(ctx context.Context, farmerID int) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	path := fmt.Sprintf("/api/farmer/%d/renew", farmerID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do performs one request and decodes the JSON response into out.
// Non-2xx responses become *Error with the backend's message field.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
