package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabayan/chatd/internal/assistant"
	"github.com/pasabayan/chatd/internal/identity"
)

func postJSON(t *testing.T, fx *serverFixture, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatSend(t *testing.T) {
	t.Parallel()

	t.Run("creates conversation and answers", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "What trips do I have?"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp chatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Hello from Pasabayan!", resp.Message)
		assert.Equal(t, []string{"get_my_trips"}, resp.ToolsUsed)
		assert.Equal(t, "user", resp.Mode)

		id, err := uuid.Parse(resp.ConversationID)
		require.NoError(t, err)

		// Only the prompt and the final answer are stored, as plain text.
		conv, err := fx.store.Get(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, conv.Messages, 2)
		turns, err := assistant.DecodeTurns(conv.Messages)
		require.NoError(t, err)
		assert.Equal(t, "user", turns[0].Role)
		assert.Equal(t, "What trips do I have?", turns[0].Text())
		assert.Equal(t, "assistant", turns[1].Role)
		assert.Equal(t, "Hello from Pasabayan!", turns[1].Text())
		for _, turn := range turns {
			require.Len(t, turn.Blocks, 1)
			assert.Equal(t, "text", turn.Blocks[0].Type)
		}
	})

	t.Run("continues an existing conversation", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		conv, err := fx.store.Create(context.Background(), "user")
		require.NoError(t, err)
		msg, err := assistant.EncodeTurn(assistant.Turn{
			Role:   "user",
			Blocks: []assistant.Block{{Type: "text", Text: "earlier message"}},
		})
		require.NoError(t, err)
		require.NoError(t, fx.store.Append(context.Background(), conv.ID, msg))

		rec := postJSON(t, fx, "/api/chat", `{"message": "and now?", "conversationId": "`+conv.ID.String()+`"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, fx.responder.gotHistory)
		assert.Equal(t, "and now?", fx.responder.gotMessage)
	})

	t.Run("missing message", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Message is required", resp.Error)
		assert.Equal(t, "MISSING_MESSAGE", resp.Code)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi", "conversationId": "`+uuid.NewString()+`"}`, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "NOT_FOUND", resp.Code)
	})

	t.Run("assistant failure keeps the user message", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		fx.responder.err = errors.New("provider unavailable")

		conv, err := fx.store.Create(context.Background(), "user")
		require.NoError(t, err)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi", "conversationId": "`+conv.ID.String()+`"}`, nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Failed to process chat message", resp.Error)
		assert.Equal(t, "CHAT_ERROR", resp.Code)

		// The user message stays recorded; a retry must not resubmit it.
		got, err := fx.store.Get(context.Background(), conv.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "user", got.Messages[0].Role)
	})

	t.Run("mode is fixed at creation", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi"}`, map[string]string{"X-Admin-Token": "admin-secret"})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp chatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "admin", resp.Mode)

		// The same conversation cannot be continued in another mode.
		rec = postJSON(t, fx, "/api/chat", `{"message": "again", "conversationId": "`+resp.ConversationID+`"}`, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "MODE_MISMATCH", errResp.Code)

		// With the original credentials it continues normally.
		rec = postJSON(t, fx, "/api/chat", `{"message": "again", "conversationId": "`+resp.ConversationID+`"}`, map[string]string{"X-Admin-Token": "admin-secret"})
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestChatIdentity(t *testing.T) {
	t.Parallel()

	t.Run("admin token selects admin mode", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi"}`, map[string]string{"X-Admin-Token": "admin-secret"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, identity.ModeAdmin, fx.responder.gotCaller.Mode)
		assert.True(t, fx.responder.gotCaller.Privileged)
	})

	t.Run("invalid admin token rejected", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi"}`, map[string]string{"X-Admin-Token": "wrong"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid admin token", resp.Error)
		assert.Equal(t, "INVALID_ADMIN_TOKEN", resp.Code)
	})

	t.Run("invalid developer token rejected", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi"}`, map[string]string{"X-Developer-Token": "wrong"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_DEVELOPER_TOKEN", resp.Code)
	})

	t.Run("qa header selects qa mode", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi"}`, map[string]string{"X-QA-Mode": "true"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, identity.ModeQA, fx.responder.gotCaller.Mode)
		assert.False(t, fx.responder.gotCaller.Privileged)
	})

	t.Run("bearer token carried to user mode", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat", `{"message": "hi"}`, map[string]string{"Authorization": "Bearer user-token-1"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, identity.ModeUser, fx.responder.gotCaller.Mode)
		assert.Equal(t, "user-token-1", fx.responder.gotCaller.Credential)
	})
}

func TestChatStream(t *testing.T) {
	t.Parallel()

	t.Run("emits NDJSON events in order", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat/stream", `{"message": "hi"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

		var events []assistant.Event
		scanner := bufio.NewScanner(rec.Body)
		for scanner.Scan() {
			var e assistant.Event
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
			events = append(events, e)
		}

		require.Len(t, events, 4)
		assert.Equal(t, assistant.EventMeta, events[0].Type)
		assert.NotEmpty(t, events[0].ConversationID)
		assert.Equal(t, "user", events[0].Mode)
		assert.Equal(t, assistant.EventTool, events[1].Type)
		assert.Equal(t, assistant.EventText, events[2].Type)
		assert.Equal(t, "Hello from Pasabayan!", events[2].Content)
		assert.Equal(t, assistant.EventDone, events[3].Type)
	})

	t.Run("assistant failure becomes error event", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		fx.responder.err = errors.New("provider unavailable")

		rec := postJSON(t, fx, "/api/chat/stream", `{"message": "hi"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var events []assistant.Event
		scanner := bufio.NewScanner(rec.Body)
		for scanner.Scan() {
			var e assistant.Event
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
			events = append(events, e)
		}

		require.Len(t, events, 2)
		assert.Equal(t, assistant.EventMeta, events[0].Type)
		assert.Equal(t, assistant.EventError, events[1].Type)
		assert.Equal(t, "Failed to process chat message", events[1].Error)

		// The user message was recorded before the failing provider call.
		id, err := uuid.Parse(events[0].ConversationID)
		require.NoError(t, err)
		conv, err := fx.store.Get(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, conv.Messages, 1)
		assert.Equal(t, "user", conv.Messages[0].Role)
	})

	t.Run("missing message rejected before streaming", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat/stream", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})
}

func TestConversationLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("new then get then delete", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := postJSON(t, fx, "/api/chat/new", `{}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		var created createdResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		id := created.ConversationID
		require.NotEmpty(t, id)
		assert.Equal(t, "user", created.Mode)
		assert.False(t, created.CreatedAt.IsZero())

		// Run one turn so the transcript has content.
		rec = postJSON(t, fx, "/api/chat", `{"message": "hi", "conversationId": "`+id+`"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		getRec := httptest.NewRecorder()
		fx.server.Handler().ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/api/chat/"+id, nil))
		require.Equal(t, http.StatusOK, getRec.Code)

		var view conversationView
		require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &view))
		assert.Equal(t, id, view.ConversationID)
		assert.Equal(t, "user", view.Mode)
		require.Len(t, view.Messages, 2)
		assert.Equal(t, "user", view.Messages[0].Role)
		assert.Equal(t, "hi", view.Messages[0].Content)
		assert.Equal(t, "assistant", view.Messages[1].Role)

		delRec := httptest.NewRecorder()
		fx.server.Handler().ServeHTTP(delRec, httptest.NewRequest(http.MethodDelete, "/api/chat/"+id, nil))
		assert.Equal(t, http.StatusNoContent, delRec.Code)

		// Gone now.
		goneRec := httptest.NewRecorder()
		fx.server.Handler().ServeHTTP(goneRec, httptest.NewRequest(http.MethodGet, "/api/chat/"+id, nil))
		assert.Equal(t, http.StatusNotFound, goneRec.Code)
	})

	t.Run("get unknown id", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := httptest.NewRecorder()
		fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/"+uuid.NewString(), nil))
		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Conversation not found", resp.Error)
		assert.Equal(t, "NOT_FOUND", resp.Code)
	})

	t.Run("delete malformed id", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		rec := httptest.NewRecorder()
		fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/chat/not-a-uuid", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
