package authclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        []byte
}

func captureServer(t *testing.T, status int, response string) (*authclient.APIClient, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		captured.contentType = r.Header.Get("Content-Type")
		captured.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	api, err := authclient.NewAPIClient(srv.URL+"/api/", nil)
	require.NoError(t, err)
	api.WithLogger(nopLogger{})
	return api, captured
}

func TestNewAPIClient_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		_, err := authclient.NewAPIClient(raw, nil)
		assert.Error(t, err, raw)
	}
}

func TestAPIClient_Methods(t *testing.T) {
	tests := []struct {
		method string
		call   func(api *authclient.APIClient, out any) error
	}{
		{http.MethodPost, func(api *authclient.APIClient, out any) error {
			return api.Post(context.Background(), "/patients", map[string]string{"name": "Ana"}, out)
		}},
		{http.MethodPut, func(api *authclient.APIClient, out any) error {
			return api.Put(context.Background(), "patients/1", map[string]string{"name": "Ana"}, out)
		}},
		{http.MethodPatch, func(api *authclient.APIClient, out any) error {
			return api.Patch(context.Background(), "/patients/1", map[string]string{"name": "Ana"}, out)
		}},
		{http.MethodDelete, func(api *authclient.APIClient, out any) error {
			return api.Delete(context.Background(), "/patients/1", out)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			api, captured := captureServer(t, http.StatusOK, `{"id":1}`)

			out := map[string]any{}
			require.NoError(t, tt.call(api, &out))

			assert.Equal(t, tt.method, captured.method)
			assert.Contains(t, captured.path, "/api/patients")
			assert.Equal(t, float64(1), out["id"])
			if tt.method != http.MethodDelete {
				assert.Equal(t, "application/json", captured.contentType)
				assert.JSONEq(t, `{"name":"Ana"}`, string(captured.body))
			}
		})
	}
}

func TestAPIClient_GetParams(t *testing.T) {
	type filter struct {
		Status string `url:"status"`
	}

	tests := []struct {
		name   string
		params any
		want   url.Values
	}{
		{"nil", nil, url.Values{}},
		{"map string", map[string]string{"q": "ana"}, url.Values{"q": {"ana"}}},
		{"map any skips nil", map[string]any{"active": true, "skip": nil}, url.Values{"active": {"true"}}},
		{"struct", filter{Status: "open"}, url.Values{"status": {"open"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, captured := captureServer(t, http.StatusOK, `[]`)
			var out []any
			require.NoError(t, api.Get(context.Background(), "/patients", tt.params, &out))
			assert.Equal(t, "/api/patients", captured.path)
			assert.Equal(t, tt.want, captured.query)
		})
	}
}

func TestAPIClient_GetPaginated(t *testing.T) {
	api, captured := captureServer(t, http.StatusOK, `{"data":[{"id":1}],"total":11,"page":2,"limit":5,"totalPages":3}`)

	var page authclient.Page[map[string]any]
	err := api.GetPaginated(context.Background(), "/products", authclient.Pagination{
		Page:  2,
		Limit: 5,
		Sort:  "name",
		Order: "desc",
	}, map[string]string{"category_id": "1"}, &page)
	require.NoError(t, err)

	assert.Equal(t, url.Values{
		"skip":        {"2"},
		"limit":       {"5"},
		"sort":        {"name"},
		"order":       {"desc"},
		"category_id": {"1"},
	}, captured.query)
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Data, 1)
}

func TestAPIClient_GetPaginatedValidation(t *testing.T) {
	api, _ := captureServer(t, http.StatusOK, `{}`)

	tests := []authclient.Pagination{
		{Page: -1, Limit: 10},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 1001},
		{Page: 1, Limit: 10, Order: "sideways"},
	}
	for _, p := range tests {
		err := api.GetPaginated(context.Background(), "/products", p, nil, nil)
		assert.Error(t, err)
	}
}

func TestAPIClient_ErrorStatus(t *testing.T) {
	api, _ := captureServer(t, http.StatusNotFound, `{"message":"patient not found"}`)

	err := api.Get(context.Background(), "/patients/99", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "resource not found", richMessage(err))
}

func TestAPIClient_BadJSON(t *testing.T) {
	api, _ := captureServer(t, http.StatusOK, `{"broken`)

	out := map[string]any{}
	err := api.Get(context.Background(), "/patients", nil, &out)
	require.Error(t, err)
	assert.Equal(t, authclient.ErrUnableToParseData.Message, richMessage(err))
}

func TestAPIClient_NoContent(t *testing.T) {
	api, _ := captureServer(t, http.StatusNoContent, "")
	out := map[string]any{}
	assert.NoError(t, api.Delete(context.Background(), "/patients/1", &out))
}

func TestAPIClient_NetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	api, err := authclient.NewAPIClient(base, &http.Client{Timeout: time.Second})
	require.NoError(t, err)
	api.WithLogger(nopLogger{})

	err = api.Get(context.Background(), "/dashboard", nil, nil)
	assert.True(t, authclient.IsNetworkUnavailable(err))
}

func TestAPIClient_CancelledContext(t *testing.T) {
	api, _ := captureServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := api.Get(ctx, "/dashboard", nil, nil)
	require.Error(t, err)
	assert.False(t, authclient.IsNetworkUnavailable(err))
}

func TestPage_JSON(t *testing.T) {
	var page authclient.Page[string]
	require.NoError(t, json.Unmarshal([]byte(`{"data":["a"],"total":1,"page":1,"limit":10,"totalPages":1}`), &page))
	assert.Equal(t, []string{"a"}, page.Data)
	assert.Equal(t, 1, page.TotalPages)
}
