package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
)

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// RESTClient sends JSON requests to the portal API and maps non-2xx
// responses onto error envelopes.
type RESTClient struct {
	BaseURL              string
	Client               core.HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTClient(baseURL string, client core.HTTPDoer) *RESTClient {
	if client == nil {
		client = &http.Client{Timeout: core.DefaultHTTPTimeout}
	}
	return &RESTClient{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  client,
		DefaultHeaders: map[string]string{
			"Accept": "application/json",
		},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (c *RESTClient) Do(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.Client == nil {
		return Response{}, transportError(
			"transport: rest client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolveURL(req.Path, req.Query)
	if err != nil {
		return Response{}, err
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, transportWrapError(
				err,
				goerrors.CategoryBadInput,
				"transport: encode request body",
				http.StatusBadRequest,
				map[string]any{"method": method, "url": target},
			)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target},
		)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	startedAt := time.Now()
	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return Response{}, richErr
		}
		return Response{}, networkError(
			err,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := c.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultResponseBodyLimit
	}
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return Response{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(payload)) > maxBodyBytes {
		return Response{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	resp := Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Duration:   time.Since(startedAt),
	}
	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return resp, apiError(method, target, resp)
	}
	return resp, nil
}

func (c *RESTClient) resolveURL(path string, query url.Values) (string, error) {
	path = strings.TrimSpace(path)
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = c.BaseURL + path
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host")
		}
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": raw},
		)
	}
	if len(query) > 0 {
		merged := parsed.Query()
		for key, values := range query {
			if strings.TrimSpace(key) == "" {
				continue
			}
			for _, value := range values {
				merged.Add(strings.TrimSpace(key), value)
			}
		}
		parsed.RawQuery = merged.Encode()
	}
	return parsed.String(), nil
}

func apiError(method string, target string, resp Response) error {
	var message core.MessageResponse
	if len(resp.Body) > 0 {
		_ = json.Unmarshal(resp.Body, &message)
	}
	err := core.NewAPIError(resp.StatusCode, message.Message)
	err.WithMetadata(map[string]any{
		"method":      method,
		"url":         target,
		"status_code": resp.StatusCode,
	})
	return err
}

// Call performs req and decodes a JSON response into T. An empty body
// decodes to the zero value.
func Call[T any](ctx context.Context, client *RESTClient, req Request) (T, error) {
	var out T
	resp, err := client.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode response body",
			http.StatusBadGateway,
			map[string]any{"status_code": resp.StatusCode},
		)
	}
	return out, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
