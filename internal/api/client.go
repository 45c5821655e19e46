package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout   = 10 * time.Second
	defaultUploadTimeout = 5 * time.Minute
	httpTimeoutEnvKey    = "MP3INDEX_HTTP_TIMEOUT"
	uploadTokenEnvKey    = "MP3INDEX_UPLOAD_TOKEN"
)

// Client is a simple HTTP client for the mp3index API.
type Client struct {
	baseURL    string
	http       *http.Client
	uploadHTTP *http.Client
	authToken  string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		uploadHTTP: &http.Client{Timeout: defaultUploadTimeout},
		authToken:  strings.TrimSpace(os.Getenv(uploadTokenEnvKey)),
	}
}

// WithToken sets the bearer token sent with uploads.
func (c *Client) WithToken(token string) *Client {
	c.authToken = strings.TrimSpace(token)
	return c
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListMemories(ctx context.Context) ([]Memory, error) {
	var resp []Memory
	err := c.do(ctx, http.MethodGet, "/memories", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetMemory(ctx context.Context, id string) (Memory, error) {
	var resp Memory
	err := c.do(ctx, http.MethodGet, "/memories/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) AdjacentMemories(ctx context.Context, id string) (MemoryNeighbors, error) {
	var resp MemoryNeighbors
	err := c.do(ctx, http.MethodGet, "/memories/"+url.PathEscape(id)+"/adjacent", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	var resp []string
	err := c.do(ctx, http.MethodGet, "/labels", nil, nil, &resp)
	return resp, err
}

// CreateMemory uploads content as a multipart form together with req.
func (c *Client) CreateMemory(ctx context.Context, req MemoryCreateRequest, content io.Reader) (Memory, error) {
	var resp Memory

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMemoryForm(writer, req, content))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/memories", pr)
	if err != nil {
		_ = pr.Close()
		return resp, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeader(httpReq)

	httpResp, err := c.uploadHTTP.Do(httpReq)
	if err != nil {
		_ = pr.Close()
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeMemoryForm(writer *multipart.Writer, req MemoryCreateRequest, content io.Reader) error {
	fields := [][2]string{
		{"recipientName", req.RecipientName},
		{"memoryText", req.MemoryText},
	}
	if strings.TrimSpace(req.LabelColor) != "" {
		fields = append(fields, [2]string{"labelColor", req.LabelColor})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.FileName)))
	if req.MediaType != "" {
		header.Set("Content-Type", req.MediaType)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return writer.Close()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
