package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/pitchtrace/internal/httputil"
)

// Client talks to a running monitor server, e.g. from a terminal review tool.
type Client struct {
	HTTPClient httputil.HTTPClient
	BaseURL    string
}

// NewClient creates a monitor client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient httputil.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(nil)
	}
	return &Client{HTTPClient: httpClient, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Pending fetches the open prompt and confirmation.
func (c *Client) Pending() (ReviewJSON, error) {
	var out ReviewJSON
	resp, err := c.HTTPClient.Get(c.BaseURL + "/api/review")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return out, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode review: %w", err)
	}
	return out, nil
}

// Answer posts an operator response for frame.
func (c *Client) Answer(req AnswerRequest) error {
	return c.post("/api/review/answer", req)
}

// Confirm accepts or rejects the open confirmation.
func (c *Client) Confirm(accept bool) error {
	return c.post("/api/review/confirm", VerdictRequest{Accept: accept})
}

// Track fetches a stored run.
func (c *Client) Track(runID string) (TrackJSON, error) {
	var out TrackJSON
	resp, err := c.HTTPClient.Get(c.BaseURL + "/api/tracks/" + runID)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return out, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode track: %w", err)
	}
	return out, nil
}

func (c *Client) post(path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
