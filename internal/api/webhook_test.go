package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallio/boardbot/internal/config"
	"github.com/mkallio/boardbot/internal/gh"
	"github.com/mkallio/boardbot/internal/handler"
	"github.com/mkallio/boardbot/internal/models"
	"github.com/mkallio/boardbot/internal/notify"
	"github.com/mkallio/boardbot/internal/signature"
)

const testSecret = "whsec_test"

var testGitHub = config.GitHubConfig{
	WebhookSecret: testSecret,
	ProjectID:     "PVT_proj1",
	StatusFieldID: "PVTSSF_status",
	Repository:    "acme/widgets",
}

// memStore is an in-memory storage.Store for router tests.
type memStore struct {
	mu         sync.Mutex
	moves      map[string]models.ScheduledMove
	deliveries []models.Delivery
}

func newMemStore() *memStore {
	return &memStore{moves: make(map[string]models.ScheduledMove)}
}

func (m *memStore) PutMove(ctx context.Context, move *models.ScheduledMove) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves[move.ItemID] = *move
	return nil
}

func (m *memStore) GetMove(ctx context.Context, itemID string) (*models.ScheduledMove, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if move, ok := m.moves[itemID]; ok {
		return &move, nil
	}
	return nil, nil
}

func (m *memStore) DeleteMove(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.moves, itemID)
	return nil
}

func (m *memStore) ListMoves(ctx context.Context) ([]models.ScheduledMove, error) {
	return nil, nil
}

func (m *memStore) DueMoves(ctx context.Context, asOf time.Time, limit int) ([]models.ScheduledMove, error) {
	return nil, nil
}

func (m *memStore) RecordDelivery(ctx context.Context, d *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, *d)
	return nil
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

// fakeGitHub satisfies both handler.ItemLookup and handler.BoardClient.
type fakeGitHub struct {
	detail    *gh.ItemDetail
	items     []gh.ProjectItem
	reactions []string
}

func (f *fakeGitHub) ItemDetail(ctx context.Context, itemID string, installationID int64) (*gh.ItemDetail, error) {
	return f.detail, nil
}

func (f *fakeGitHub) IssueProjectItems(ctx context.Context, issueID string, installationID int64) ([]gh.ProjectItem, error) {
	return f.items, nil
}

func (f *fakeGitHub) AddReaction(ctx context.Context, subjectID, content string, installationID int64) error {
	f.reactions = append(f.reactions, content)
	return nil
}

func (f *fakeGitHub) AddComment(ctx context.Context, subjectID, body string, installationID int64) error {
	return nil
}

type stubNotifier struct {
	err  error
	sent int
}

func (n *stubNotifier) Send(ctx context.Context, notification notify.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent++
	return nil
}

func newTestServer(github *fakeGitHub, notifier *stubNotifier, store *memStore) *Server {
	log := zerolog.Nop()
	projects := handler.NewProjectHandler(testGitHub, github, notifier, log)
	comments := handler.NewCommentHandler(testGitHub, github, store, log)
	return NewServer(config.ServerConfig{}, testGitHub, store, projects, comments, log)
}

func post(t *testing.T, srv *Server, eventType string, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if eventType != "" {
		req.Header.Set(headerEvent, eventType)
	}
	if sign {
		req.Header.Set(headerSignature, signature.Sign(testSecret, body))
	}
	req.Header.Set(headerDelivery, "4f883d00-70fc-11ee-9f2a-6f74cbe3aeb8")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookMissingBody(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())
	rec := post(t, srv, "issue_comment", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMissingEventHeader(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())
	rec := post(t, srv, "", []byte(`{"installation":{"id":99}}`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMissingSignature(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())
	rec := post(t, srv, "issue_comment", []byte(`{"installation":{"id":99}}`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookBadSignature(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())

	body := []byte(`{"installation":{"id":99}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set(headerEvent, "issue_comment")
	req.Header.Set(headerSignature, signature.Sign("wrong_secret", body))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookEnvelopeWithoutInstallation(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())
	rec := post(t, srv, "issue_comment", []byte(`{"action":"created"}`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookUnknownEventType(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, store)

	rec := post(t, srv, "workflow_run", []byte(`{"installation":{"id":99}}`), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.Len(t, store.deliveries, 1)
	assert.Equal(t, "workflow_run", store.deliveries[0].EventType)
	assert.Equal(t, http.StatusUnprocessableEntity, store.deliveries[0].Status)
}

func TestWebhookIrrelevantProjectChange(t *testing.T) {
	notifier := &stubNotifier{}
	store := newMemStore()
	srv := newTestServer(&fakeGitHub{}, notifier, store)

	body := []byte(`{"action":"reordered","projects_v2_item":{"node_id":"PVTI_item1"},"installation":{"id":99}}`)
	rec := post(t, srv, "projects_v2_item", body, true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, notifier.sent)

	require.Len(t, store.deliveries, 1)
	assert.Equal(t, "reordered", store.deliveries[0].Action)
	assert.Equal(t, http.StatusNoContent, store.deliveries[0].Status)
}

func TestWebhookWatchedProjectChangeNotifies(t *testing.T) {
	github := &fakeGitHub{
		detail: &gh.ItemDetail{
			Title:       "Fix login",
			URL:         "https://github.com/acme/widgets/issues/12",
			Project:     gh.ProjectRef{Title: "Roadmap", URL: "https://github.com/orgs/acme/projects/1"},
			FieldValues: []gh.FieldValue{{Field: "Status", Value: "Done"}},
		},
	}
	notifier := &stubNotifier{}
	srv := newTestServer(github, notifier, newMemStore())

	body := []byte(`{
		"action": "edited",
		"projects_v2_item": {"node_id": "PVTI_item1", "project_node_id": "PVT_proj1"},
		"changes": {"field_value": {"field_node_id": "PVTSSF_status"}},
		"sender": {"login": "octocat"},
		"installation": {"id": 99}
	}`)
	rec := post(t, srv, "projects_v2_item", body, true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, notifier.sent)
}

func TestWebhookNotifierFailureIs500(t *testing.T) {
	github := &fakeGitHub{
		detail: &gh.ItemDetail{
			Title:       "Fix login",
			FieldValues: []gh.FieldValue{{Field: "Status", Value: "Done"}},
		},
	}
	notifier := &stubNotifier{err: errors.New("slack down")}
	store := newMemStore()
	srv := newTestServer(github, notifier, store)

	body := []byte(`{
		"action": "edited",
		"projects_v2_item": {"node_id": "PVTI_item1", "project_node_id": "PVT_proj1"},
		"changes": {"field_value": {"field_node_id": "PVTSSF_status"}},
		"sender": {"login": "octocat"},
		"installation": {"id": 99}
	}`)
	rec := post(t, srv, "projects_v2_item", body, true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, store.deliveries, 1)
	assert.Equal(t, http.StatusInternalServerError, store.deliveries[0].Status)
}

func TestWebhookCommandStoresMove(t *testing.T) {
	github := &fakeGitHub{
		items: []gh.ProjectItem{{
			ID:        "PVTI_item1",
			ProjectID: "PVT_proj1",
			StatusField: &gh.StatusField{
				ID:      "PVTSSF_status",
				Options: []gh.Option{{ID: "opt_done", Name: "Done"}},
			},
		}},
	}
	store := newMemStore()
	srv := newTestServer(github, &stubNotifier{}, store)

	body := []byte(`{
		"action": "created",
		"comment": {"node_id": "IC_comment1", "body": "/status Done on 2030-01-02", "user": {"login": "octocat"}},
		"issue": {"node_id": "I_issue1"},
		"repository": {"full_name": "acme/widgets"},
		"installation": {"id": 99}
	}`)
	rec := post(t, srv, "issue_comment", body, true)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	move, err := store.GetMove(context.Background(), "PVTI_item1")
	require.NoError(t, err)
	require.NotNil(t, move)
	assert.Equal(t, "opt_done", move.OptionID)
	assert.Equal(t, []string{gh.ReactionThumbsUp}, github.reactions)
}

func TestWebhookResponseBodies(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())

	// Accepted deliveries answer with a bare 204 and no body.
	body := []byte(`{"action":"reordered","projects_v2_item":{"node_id":"PVTI_item1"},"installation":{"id":99}}`)
	rec := post(t, srv, "projects_v2_item", body, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	// Rejections carry a JSON reason.
	rec = post(t, srv, "issue_comment", []byte(`{"action":"created"}`), false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"invalid signature"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeGitHub{}, &stubNotifier{}, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
