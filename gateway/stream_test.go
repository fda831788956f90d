package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, chunks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{"[{\"text\":", " \"cap one\"}", "]"}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")

	var chunks []string
	var progress []string
	combined, err := client.GenerateStream(context.Background(), "system", "prompt",
		func(chunk string) { chunks = append(chunks, chunk) },
		func(msg string) { progress = append(progress, msg) })

	require.NoError(t, err)
	assert.Equal(t, "[{\"text\": \"cap one\"}]", combined)
	assert.Equal(t, []string{"[{\"text\":", " \"cap one\"}", "]"}, chunks)
	require.NotEmpty(t, progress)
	assert.Equal(t, "generation started", progress[0])
	assert.Contains(t, progress[len(progress)-1], "generation complete")
}

func TestGenerateStreamNilCallbacks(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{"hello", " world"}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	combined, err := client.GenerateStream(context.Background(), "", "prompt", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "hello world", combined)
}

func TestGenerateStreamSkipsMalformedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	combined, err := client.GenerateStream(context.Background(), "", "prompt", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", combined)
}

func TestGenerateStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	_, err := client.GenerateStream(context.Background(), "", "prompt", nil, nil)

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
