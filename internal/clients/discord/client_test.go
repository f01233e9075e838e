package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsContent(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		got = append(got, payload["content"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, client.Send("hello"))

	assert.Equal(t, []string{"hello"}, got)
}

func TestSendSplitsLongMessages(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		got = append(got, payload["content"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	lines := make([]string, 50)
	for i := range lines {
		lines[i] = strings.Repeat("x", 100)
	}
	content := strings.Join(lines, "\n")

	client := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, client.Send(content))

	require.Greater(t, len(got), 1)
	var total int
	for _, chunk := range got {
		assert.LessOrEqual(t, len(chunk), maxChunkLen)
		total += len(strings.ReplaceAll(chunk, "\n", "")) // line content survives chunking
	}
	assert.Equal(t, 50*100, total)
}

func TestSendWithoutWebhookIsNoOp(t *testing.T) {
	client := NewClient("", zerolog.Nop())
	assert.NoError(t, client.Send("anything"))
}

func TestSendReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	assert.Error(t, client.Send("hello"))
}
