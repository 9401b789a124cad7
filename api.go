package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/google/go-querystring/query"
)

const maxErrorBody = 64 << 10

// Pagination is encoded as skip/limit/sort/order query params. Page is sent
// as skip, which is what the backend expects.
type Pagination struct {
	Page  int    `url:"skip"`
	Limit int    `url:"limit"`
	Sort  string `url:"sort,omitempty"`
	Order string `url:"order,omitempty"`
}

// Validate checks limits and sort order
func (p Pagination) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&p.Order, validation.In("asc", "desc")),
	)
}

// Page is the paginated envelope some endpoints return
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// APIError is the error body the backend sends
type APIError struct {
	Message string              `json:"message"`
	Detail  string              `json:"detail"`
	Status  int                 `json:"status"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// APIClient is a thin JSON wrapper over the backend REST API. Pass an
// http.Client built with NewAuthenticatedHTTPClient to sign requests.
type APIClient struct {
	baseURL *url.URL
	http    *http.Client
	logger  Logger
}

// NewAPIClient creates a client rooted at baseURL
func NewAPIClient(baseURL string, httpClient *http.Client) (*APIClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid API base URL", errors.CategoryBadInput).
			WithMetadata(map[string]any{"base_url": baseURL})
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL: u,
		http:    httpClient,
		logger:  defLogger{},
	}, nil
}

func (c *APIClient) WithLogger(logger Logger) *APIClient {
	c.logger = normalizeLogger(logger)
	return c
}

// BaseURL returns the API root
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

// Get issues a GET. params may be a map (nil values are skipped) or a
// struct with url tags.
func (c *APIClient) Get(ctx context.Context, endpoint string, params any, out any) error {
	q, err := encodeParams(params)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodGet, endpoint, q, nil, out)
}

// GetPaginated issues a GET with skip/limit/sort/order plus filters
func (c *APIClient) GetPaginated(ctx context.Context, endpoint string, p Pagination, filters any, out any) error {
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid pagination")
	}

	q, err := query.Values(p)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unable to encode pagination")
	}

	fq, err := encodeParams(filters)
	if err != nil {
		return err
	}
	for k, vals := range fq {
		for _, v := range vals {
			q.Add(k, v)
		}
	}

	return c.Do(ctx, http.MethodGet, endpoint, q, nil, out)
}

func (c *APIClient) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *APIClient) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPut, endpoint, nil, body, out)
}

func (c *APIClient) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, endpoint, nil, body, out)
}

func (c *APIClient) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil, out)
}

// Do sends a JSON request and decodes a JSON response into out. Non 2xx
// responses are mapped to rich errors; transport failures become
// ErrNetworkUnavailable. Nothing is retried.
func (c *APIClient) Do(ctx context.Context, method, endpoint string, q url.Values, body, out any) error {
	target := c.resolve(endpoint, q)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "unable to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unable to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, errors.CategoryOperation, "request cancelled")
		}
		c.logger.Error("API request failed", "method", method, "endpoint", endpoint, "error", err)
		return withCause(ErrNetworkUnavailable, err, map[string]any{
			"method":   method,
			"endpoint": endpoint,
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ErrorFromResponse(method, endpoint, resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return withCause(ErrUnableToParseData, err, map[string]any{
			"method":   method,
			"endpoint": endpoint,
		})
	}
	return nil
}

func (c *APIClient) resolve(endpoint string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ErrorFromResponse maps an HTTP status to a rich error with a message
// suitable for display.
func ErrorFromResponse(method, endpoint string, status int, body []byte) error {
	metadata := map[string]any{
		"method":   method,
		"endpoint": endpoint,
		"status":   status,
	}

	apiErr := APIError{}
	if len(body) > 0 && json.Unmarshal(body, &apiErr) == nil {
		if msg := apiErr.message(); msg != "" {
			metadata["server_message"] = msg
		}
		if len(apiErr.Errors) > 0 {
			metadata["fields"] = apiErr.Errors
		}
	}

	switch status {
	case http.StatusBadRequest:
		return errors.New("bad request", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode("BAD_REQUEST").
			WithMetadata(metadata)
	case http.StatusUnauthorized:
		return withCause(ErrAuthenticationDenied, nil, metadata)
	case http.StatusForbidden:
		return withCause(ErrAccessDenied, nil, metadata)
	case http.StatusNotFound:
		return errors.New("resource not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound).
			WithTextCode("NOT_FOUND").
			WithMetadata(metadata)
	case http.StatusUnprocessableEntity:
		return errors.New("invalid input data", errors.CategoryValidation).
			WithCode(http.StatusUnprocessableEntity).
			WithTextCode("INVALID_INPUT").
			WithMetadata(metadata)
	case http.StatusInternalServerError:
		return errors.New("internal server error", errors.CategoryInternal).
			WithCode(errors.CodeInternal).
			WithTextCode("INTERNAL_ERROR").
			WithMetadata(metadata)
	default:
		return errors.New(fmt.Sprintf("error %d: %s", status, http.StatusText(status)), errors.CategoryOperation).
			WithCode(status).
			WithTextCode(TextCodeUnexpectedAPIResponse).
			WithMetadata(metadata)
	}
}

func (e APIError) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

func encodeParams(params any) (url.Values, error) {
	out := url.Values{}
	switch p := params.(type) {
	case nil:
		return out, nil
	case url.Values:
		return p, nil
	case map[string]string:
		for k, v := range p {
			out.Set(k, v)
		}
		return out, nil
	case map[string]any:
		for k, v := range p {
			if v == nil {
				continue
			}
			out.Set(k, fmt.Sprint(v))
		}
		return out, nil
	default:
		v, err := query.Values(params)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to encode query params")
		}
		return v, nil
	}
}
