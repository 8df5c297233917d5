package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pasabayan/chatd/internal/assistant"
	"github.com/pasabayan/chatd/internal/convo"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/log"
)

// maxChatBodyBytes bounds chat request bodies.
const maxChatBodyBytes = 1024 * 1024

// Responder runs one assistant turn. Satisfied by *assistant.Assistant;
// tests substitute a scripted implementation.
type Responder interface {
	Respond(ctx context.Context, caller identity.Context, history []assistant.Turn, message string) (*assistant.Reply, error)
	RespondStream(ctx context.Context, caller identity.Context, history []assistant.Turn, message string, emit func(assistant.Event)) (*assistant.Reply, error)
}

// chatHandler serves the chat endpoints.
type chatHandler struct {
	assistant Responder
	store     convo.Store
	logger    log.Logger
}

// chatRequest is the body of POST /api/chat and /api/chat/stream.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// chatResponse is the body of a successful POST /api/chat.
type chatResponse struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId"`
	ToolsUsed      []string `json:"toolsUsed"`
	Mode           string   `json:"mode"`
}

// createdResponse is the body of POST /api/chat/new.
type createdResponse struct {
	ConversationID string    `json:"conversationId"`
	Mode           string    `json:"mode"`
	CreatedAt      time.Time `json:"createdAt"`
}

// conversationView is the body of GET /api/chat/{id}.
type conversationView struct {
	ConversationID string            `json:"conversationId"`
	Mode           string            `json:"mode"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Messages       []transcriptEntry `json:"messages"`
}

type transcriptEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	caller := callerFromContext(r.Context())
	conv, history, ok := h.loadConversation(r.Context(), w, req.ConversationID, caller)
	if !ok {
		return
	}

	// The user message is recorded before the provider call so a failed
	// turn does not lose it; retries must not resubmit recorded input.
	h.persistTurns(r.Context(), conv.ID, assistant.UserTurn(req.Message))

	reply, err := h.assistant.Respond(r.Context(), caller, history, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed", "conversation", conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process chat message", "CHAT_ERROR", h.logger)
		return
	}

	h.persistTurns(r.Context(), conv.ID, assistant.AssistantTurn(reply.Text))

	toolsUsed := reply.ToolsUsed
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Message:        reply.Text,
		ConversationID: conv.ID.String(),
		ToolsUsed:      toolsUsed,
		Mode:           conv.Mode,
	}, h.logger)
}

// stream handles POST /api/chat/stream with NDJSON progress events.
// Validation failures are reported as plain JSON errors before the stream
// starts; once streaming, failures become error events.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	caller := callerFromContext(r.Context())
	conv, history, ok := h.loadConversation(r.Context(), w, req.ConversationID, caller)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "Streaming not supported", "STREAM_UNSUPPORTED", h.logger)
		return
	}

	h.persistTurns(r.Context(), conv.ID, assistant.UserTurn(req.Message))

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	emit := func(e assistant.Event) {
		if err := json.NewEncoder(w).Encode(e); err != nil {
			h.logger.Debug("stream write failed", "error", err)
			return
		}
		flusher.Flush()
	}

	emit(assistant.Event{Type: assistant.EventMeta, ConversationID: conv.ID.String(), Mode: conv.Mode})

	reply, err := h.assistant.RespondStream(r.Context(), caller, history, req.Message, emit)
	if err != nil {
		h.logger.Error("chat stream failed", "conversation", conv.ID, "error", err)
		emit(assistant.Event{Type: assistant.EventError, Error: "Failed to process chat message"})
		return
	}

	h.persistTurns(r.Context(), conv.ID, assistant.AssistantTurn(reply.Text))
}

// newConversation handles POST /api/chat/new.
func (h *chatHandler) newConversation(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	conv, err := h.store.Create(r.Context(), caller.Mode.String())
	if err != nil {
		h.logger.Error("creating conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation", "STORE_ERROR", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{
		ConversationID: conv.ID.String(),
		Mode:           conv.Mode,
		CreatedAt:      conv.CreatedAt,
	}, h.logger)
}

// getConversation handles GET /api/chat/{id}.
func (h *chatHandler) getConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	turns, err := assistant.DecodeTurns(conv.Messages)
	if err != nil {
		h.logger.Error("decoding transcript", "conversation", conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation", "STORE_ERROR", h.logger)
		return
	}

	view := conversationView{
		ConversationID: conv.ID.String(),
		Mode:           conv.Mode,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
		Messages:       []transcriptEntry{},
	}
	for i, turn := range turns {
		view.Messages = append(view.Messages, transcriptEntry{
			Role:      turn.Role,
			Content:   turn.Text(),
			CreatedAt: conv.Messages[i].CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, view, h.logger)
}

// deleteConversation handles DELETE /api/chat/{id}.
func (h *chatHandler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found", "NOT_FOUND", h.logger)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, convo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found", "NOT_FOUND", h.logger)
			return
		}
		h.logger.Error("deleting conversation", "conversation", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation", "STORE_ERROR", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// lookup parses the path id and fetches the conversation, writing the 404
// envelope on any miss.
func (h *chatHandler) lookup(w http.ResponseWriter, r *http.Request) (*convo.Conversation, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found", "NOT_FOUND", h.logger)
		return nil, false
	}

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, convo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found", "NOT_FOUND", h.logger)
			return nil, false
		}
		h.logger.Error("loading conversation", "conversation", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation", "STORE_ERROR", h.logger)
		return nil, false
	}

	return conv, true
}

func (h *chatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", h.logger)
		return chatRequest{}, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required", "MISSING_MESSAGE", h.logger)
		return chatRequest{}, false
	}
	return req, true
}

// loadConversation resolves the conversation for a chat turn, creating one
// in the caller's mode when no id was supplied. The mode is fixed at
// creation; a request resolving to a different mode is rejected.
func (h *chatHandler) loadConversation(ctx context.Context, w http.ResponseWriter, rawID string, caller identity.Context) (*convo.Conversation, []assistant.Turn, bool) {
	if rawID == "" {
		conv, err := h.store.Create(ctx, caller.Mode.String())
		if err != nil {
			h.logger.Error("creating conversation", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create conversation", "STORE_ERROR", h.logger)
			return nil, nil, false
		}
		return conv, nil, true
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found", "NOT_FOUND", h.logger)
		return nil, nil, false
	}

	conv, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, convo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found", "NOT_FOUND", h.logger)
			return nil, nil, false
		}
		h.logger.Error("loading conversation", "conversation", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation", "STORE_ERROR", h.logger)
		return nil, nil, false
	}

	if conv.Mode != caller.Mode.String() {
		writeError(w, http.StatusForbidden, "Conversation was started in a different mode", "MODE_MISMATCH", h.logger)
		return nil, nil, false
	}

	history, err := assistant.DecodeTurns(conv.Messages)
	if err != nil {
		h.logger.Error("decoding transcript", "conversation", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation", "STORE_ERROR", h.logger)
		return nil, nil, false
	}

	return conv, history, true
}

// persistTurns appends turns to the transcript. Persistence failures are
// logged but do not fail the response the caller already has.
func (h *chatHandler) persistTurns(ctx context.Context, id uuid.UUID, turns ...assistant.Turn) {
	msgs := make([]convo.Message, 0, len(turns))
	for _, turn := range turns {
		msg, err := assistant.EncodeTurn(turn)
		if err != nil {
			h.logger.Error("encoding turn", "conversation", id, "error", err)
			return
		}
		msgs = append(msgs, msg)
	}
	if err := h.store.Append(ctx, id, msgs...); err != nil {
		h.logger.Error("persisting turns", "conversation", id, "error", err)
	}
}
