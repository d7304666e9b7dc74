package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardClient_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client := NewStandardClient(nil)
	assert.Equal(t, DefaultTimeout, client.Timeout)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "deadreckon", gotUA)

	req, _ = http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "custom", gotUA)
}

func TestMockHTTPClient(t *testing.T) {
	boom := errors.New("connection refused")
	mock := NewMockHTTPClient().
		AddResponse(http.StatusNotFound, "missing").
		AddErrorResponse(boom)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/a", nil)
	resp, err := mock.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "missing", string(body))

	_, err = mock.Do(req)
	assert.ErrorIs(t, err, boom)

	resp, err = mock.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "exhausted queue answers 200")

	assert.Equal(t, 3, mock.RequestCount())
	assert.Equal(t, "/a", mock.GetRequest(0).URL.Path)
	assert.Nil(t, mock.GetRequest(3))
}

func TestWriteHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		body   string
	}{
		{"ok", func(w http.ResponseWriter) { WriteJSONOK(w, map[string]int{"n": 1}) }, http.StatusOK, `{"n":1}`},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "nope") }, http.StatusBadRequest, `{"error":"nope"}`},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone") }, http.StatusNotFound, `{"error":"gone"}`},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "busy") }, http.StatusConflict, `{"error":"busy"}`},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, `{"error":"method not allowed"}`},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "x") }, http.StatusInternalServerError, `{"error":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{"valid", `{"name":"a"}`, "a", ""},
		{"trailing newline", "{\"name\":\"b\"}\n", "b", ""},
		{"empty", ``, "", "request body is empty"},
		{"unknown field", `{"nom":"a"}`, "", "invalid request body"},
		{"trailing data", `{"name":"a"}{"name":"b"}`, "", "trailing data"},
		{"malformed", `{"name":`, "", "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestWriteJSON_Encodes(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, []string{"a"})
	var got []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
