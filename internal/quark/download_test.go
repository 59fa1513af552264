package quark

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/file/download", r.URL.Path)

		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"f1", "f2"}, body["fids"])

		_, _ = w.Write([]byte(`{"status":200,"message":"ok","data":[
			{"fid":"f1","file_name":"a.mkv","download_url":"https://dl.example/a"},
			{"fid":"f2","file_name":"b.mkv","download_url":"https://dl.example/b"}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	targets, err := client.ResolveDownloads(context.Background(), []string{"f1", "f2"})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, DownloadTarget{Fid: "f1", FileName: "a.mkv", URL: "https://dl.example/a"}, targets[0])
}

func TestResolveDownloads_AppFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":400,"code":31001,"message":"require login","data":null}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ResolveDownloads(context.Background(), []string{"f1"})
	require.Error(t, err)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestFetchFile_CountsBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Download URLs are cookie-gated, not pre-authenticated.
		assert.NotEmpty(t, r.Header.Get("Cookie"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var buf bytes.Buffer

	written, advertised, err := client.FetchFile(context.Background(), srv.URL+"/dl", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), written)
	assert.Equal(t, int64(1000), advertised)
	assert.Equal(t, payload, buf.Bytes())
}

func TestFetchFile_HTTPErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, _, err := client.FetchFile(context.Background(), srv.URL+"/dl", &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}
