package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification() Notification {
	return Notification{
		Title:        "Fix login",
		URL:          "https://github.com/acme/widgets/issues/12",
		Status:       "In Progress",
		ProjectTitle: "Roadmap",
		ProjectURL:   "https://github.com/orgs/acme/projects/1",
		Actor:        "octocat",
	}
}

func TestFallback(t *testing.T) {
	assert.Equal(t, "'Fix login' moved to 'In Progress' by octocat", testNotification().Fallback())
}

func TestSendNotConfigured(t *testing.T) {
	n := NewSlackNotifier("", "")
	err := n.Send(context.Background(), testNotification())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendSuccess(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "#board-updates")
	require.NoError(t, n.Send(context.Background(), testNotification()))

	assert.Equal(t, "#board-updates", payload["channel"])
	assert.Equal(t, "'Fix login' moved to 'In Progress' by octocat", payload["text"])

	blocks, ok := payload["blocks"].([]interface{})
	require.True(t, ok)
	require.Len(t, blocks, 2)

	section := blocks[0].(map[string]interface{})
	text := section["text"].(map[string]interface{})["text"].(string)
	assert.Contains(t, text, "https://github.com/acme/widgets/issues/12")
	assert.Contains(t, text, "In Progress")

	elements := blocks[1].(map[string]interface{})["elements"].([]interface{})
	avatar := elements[0].(map[string]interface{})
	assert.Equal(t, "https://github.com/octocat.png", avatar["image_url"])
}

func TestSendDraftItemFallsBackToProjectURL(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notification := testNotification()
	notification.URL = ""

	n := NewSlackNotifier(srv.URL, "")
	require.NoError(t, n.Send(context.Background(), notification))

	blocks := payload["blocks"].([]interface{})
	section := blocks[0].(map[string]interface{})
	text := section["text"].(map[string]interface{})["text"].(string)
	assert.Contains(t, text, "https://github.com/orgs/acme/projects/1|Fix login")
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid_blocks"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "")
	err := n.Send(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_blocks")
}
