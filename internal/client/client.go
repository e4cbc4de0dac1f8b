package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plantdash/plantdash/internal/session"
)

// Client represents an HTTP client for the plant management backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the backend at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-success response that is not an authentication failure
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

// do sends a JSON request and decodes the JSON response into out. token
// may be empty for unauthenticated calls.
func (c *Client) do(ctx context.Context, method, path, token string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w: %v", session.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := errorMessage(respBody)

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%s %s failed (status %d): %s: %w", method, path, resp.StatusCode, msg, session.ErrAuthRejected)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// errorMessage extracts {"error": "..."} from a response body, falling back
// to the raw body
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// IsAPIError reports whether err is a backend error with the given status
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Login authenticates the user and returns the token and user. It
// satisfies session.Authenticator.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error) {
	var result session.LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", creds, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if result.Token == "" {
		return nil, fmt.Errorf("login failed: backend returned no token")
	}

	return &result, nil
}

// Plant is a monitored industrial plant
type Plant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	SystemCount int    `json:"system_count"`
}

// System is a process system inside a plant
type System struct {
	ID      string `json:"id"`
	PlantID string `json:"plant_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

// Parameter is a measured or configured value of a system
type Parameter struct {
	ID        string    `json:"id"`
	SystemID  string    `json:"system_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Report is a generated or pending report
type Report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	PlantID   string    `json:"plant_id"`
	Format    string    `json:"format"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url,omitempty"`
}

// CreateReportRequest is the report definition sent to the backend
type CreateReportRequest struct {
	Title        string    `json:"title"`
	PlantID      string    `json:"plant_id"`
	SystemID     string    `json:"system_id,omitempty"`
	ParameterIDs []string  `json:"parameter_ids,omitempty"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Format       string    `json:"format"`
}

// ListPlants returns the plants visible to the user
func (c *Client) ListPlants(ctx context.Context, token string) ([]Plant, error) {
	var plants []Plant
	if err := c.do(ctx, http.MethodGet, "/api/plants", token, nil, http.StatusOK, &plants); err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	return plants, nil
}

// GetPlant returns a single plant
func (c *Client) GetPlant(ctx context.Context, token, plantID string) (*Plant, error) {
	var plant Plant
	path := fmt.Sprintf("/api/plants/%s", url.PathEscape(plantID))
	if err := c.do(ctx, http.MethodGet, path, token, nil, http.StatusOK, &plant); err != nil {
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}
	return &plant, nil
}

// ListSystems returns the systems of a plant
func (c *Client) ListSystems(ctx context.Context, token, plantID string) ([]System, error) {
	var systems []System
	path := fmt.Sprintf("/api/plants/%s/systems", url.PathEscape(plantID))
	if err := c.do(ctx, http.MethodGet, path, token, nil, http.StatusOK, &systems); err != nil {
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}
	return systems, nil
}

// ListParameters returns the parameters of a system
func (c *Client) ListParameters(ctx context.Context, token, systemID string) ([]Parameter, error) {
	var params []Parameter
	path := fmt.Sprintf("/api/systems/%s/parameters", url.PathEscape(systemID))
	if err := c.do(ctx, http.MethodGet, path, token, nil, http.StatusOK, &params); err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	return params, nil
}

// ListReports returns the user's reports
func (c *Client) ListReports(ctx context.Context, token string) ([]Report, error) {
	var reports []Report
	if err := c.do(ctx, http.MethodGet, "/api/reports", token, nil, http.StatusOK, &reports); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// CreateReport asks the backend to generate a report
func (c *Client) CreateReport(ctx context.Context, token string, req CreateReportRequest) (*Report, error) {
	var report Report
	if err := c.do(ctx, http.MethodPost, "/api/reports", token, req, http.StatusCreated, &report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}
