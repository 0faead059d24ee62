// Package client is a typed HTTP client for the AgroVision API, used by the
// web UI and the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/agrovision/internal/models"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 60 * time.Second

// ErrInvalidInput is returned when the API rejects a crop request value. The
// API answers such requests with 200 and an error body.
var ErrInvalidInput = errors.New("invalid input value provided")

// StatusError is a non-2xx API answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client calls a running AgroVision server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. A nil httpClient uses one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	var body map[string]string
	if err := c.do(ctx, http.MethodGet, "/healthz", "", nil, &body); err != nil {
		return err
	}
	if body["status"] != "ok" {
		return fmt.Errorf("unexpected health status %q", body["status"])
	}
	return nil
}

// PredictCrop posts req to /predict-crop.
func (c *Client) PredictCrop(ctx context.Context, req models.CropRequest) (*models.CropResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var body struct {
		models.CropResponse
		Error string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/predict-crop", "application/json", bytes.NewReader(payload), &body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, body.Error)
	}
	return &body.CropResponse, nil
}

// PredictDisease uploads the image read from r as the multipart field "file".
func (c *Client) PredictDisease(ctx context.Context, filename string, r io.Reader) (*models.DiseaseResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var resp models.DiseaseResponse
	if err := c.do(ctx, http.MethodPost, "/predict-disease", mw.FormDataContentType(), &buf, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chat posts req to /chat and returns the answer.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	var resp models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", "application/json", bytes.NewReader(payload), &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches up to limit recent predictions; an empty kind lists all.
func (c *Client) History(ctx context.Context, kind string, limit int) (*models.HistoryResponse, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", kind)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp models.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e models.ErrorResponse
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
