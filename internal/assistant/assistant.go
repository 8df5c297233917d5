// Package assistant runs the conversational loop against the Anthropic
// Messages API, executing Pasabayan tools the model requests and feeding
// results back until it produces a final text answer.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/log"
	"github.com/pasabayan/chatd/internal/tools"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	defaultMaxTokens = 4096
	defaultMaxRounds = 10

	fallbackReply   = "I apologize, but I couldn't generate a response."
	roundLimitReply = "I apologize, but I reached the tool call limit before completing your request. Please try a more specific question."
)

// Event is one chunk of a streamed response.
type Event struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Stream event types.
const (
	EventMeta  = "meta"
	EventTool  = "tool"
	EventText  = "text"
	EventError = "error"
	EventDone  = "done"
)

// completionClient is the slice of the Anthropic SDK the assistant needs.
// Tests substitute a scripted implementation.
type completionClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Config carries assistant construction parameters.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	MaxRounds int
}

// Reply is the outcome of one assistant turn.
type Reply struct {
	Text      string
	ToolsUsed []string
}

// Assistant drives the tool-use loop for one configured model.
type Assistant struct {
	client    completionClient
	registry  *tools.Registry
	gateway   *gateway.Client
	model     anthropic.Model
	maxTokens int64
	maxRounds int
	logger    log.Logger
}

// New builds an assistant backed by the real Anthropic client.
func New(cfg Config, registry *tools.Registry, gw *gateway.Client, logger log.Logger) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assistant: api key is required")
	}
	if registry == nil {
		return nil, errors.New("assistant: tool registry is required")
	}
	if gw == nil {
		return nil, errors.New("assistant: gateway client is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	a := &Assistant{
		client:    &client.Messages,
		registry:  registry,
		gateway:   gw,
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		maxRounds: cfg.MaxRounds,
		logger:    logger,
	}
	a.applyDefaults()
	return a, nil
}

func (a *Assistant) applyDefaults() {
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.maxTokens <= 0 {
		a.maxTokens = defaultMaxTokens
	}
	if a.maxRounds <= 0 {
		a.maxRounds = defaultMaxRounds
	}
	if a.logger == nil {
		a.logger = log.NewNop()
	}
}

// Respond answers one user message given the stored history. Intermediate
// tool exchanges live only inside the turn; the caller persists the user
// message and the final answer.
func (a *Assistant) Respond(ctx context.Context, caller identity.Context, history []Turn, message string) (*Reply, error) {
	return a.respond(ctx, caller, history, message, nil)
}

// RespondStream is Respond with progress events. Events are emitted in
// order: at most one tool event, then text, then done. The caller is
// responsible for the leading meta event and for error events.
func (a *Assistant) RespondStream(ctx context.Context, caller identity.Context, history []Turn, message string, emit func(Event)) (*Reply, error) {
	return a.respond(ctx, caller, history, message, emit)
}

func (a *Assistant) respond(ctx context.Context, caller identity.Context, history []Turn, message string, emit func(Event)) (*Reply, error) {
	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, toMessageParam(t))
	}
	msgs = append(msgs, toMessageParam(UserTurn(message)))

	system := []anthropic.TextBlockParam{{Text: promptFor(caller.Mode)}}
	decls := a.toolParams()
	gw := a.gateway.ForCaller(caller)

	var (
		toolsUsed    []string
		seen         = map[string]bool{}
		toolAnnounce bool
	)

	for round := 0; round < a.maxRounds; round++ {
		params := anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			System:    system,
			Messages:  msgs,
			Tools:     decls,
		}
		// Last round: force a text answer by withholding tools.
		if round == a.maxRounds-1 {
			params.Tools = nil
		}

		msg, err := a.client.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("completion: %w", err)
		}

		if msg.StopReason != anthropic.StopReasonToolUse {
			reply := &Reply{Text: extractText(msg), ToolsUsed: toolsUsed}
			if reply.Text == "" {
				reply.Text = fallbackReply
			}
			if emit != nil {
				emit(Event{Type: EventText, Content: reply.Text})
				emit(Event{Type: EventDone})
			}
			return reply, nil
		}

		calls := collectCalls(msg)
		if len(calls) == 0 {
			break
		}
		if emit != nil && !toolAnnounce {
			emit(Event{Type: EventTool, Content: "Fetching data..."})
			toolAnnounce = true
		}
		for _, c := range calls {
			if !seen[c.Name] {
				seen[c.Name] = true
				toolsUsed = append(toolsUsed, c.Name)
			}
		}

		start := time.Now()
		results := a.registry.ExecuteBatch(ctx, calls, gw)
		a.logger.Debug("tool round complete",
			"round", round,
			"tools", len(calls),
			"duration", time.Since(start))

		msgs = append(msgs, toMessageParam(responseTurn(msg)), toMessageParam(toolResultsTurn(results)))
	}

	reply := &Reply{Text: roundLimitReply, ToolsUsed: toolsUsed}
	if emit != nil {
		emit(Event{Type: EventText, Content: reply.Text})
		emit(Event{Type: EventDone})
	}
	return reply, nil
}

func (a *Assistant) toolParams() []anthropic.ToolUnionParam {
	decls := a.registry.Declarations()
	params := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema := anthropic.ToolInputSchemaParam{
			Properties: d.InputSchema.Properties,
			Required:   d.InputSchema.Required,
		}
		p := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if p.OfTool != nil && d.Description != "" {
			p.OfTool.Description = anthropic.String(d.Description)
		}
		params = append(params, p)
	}
	return params
}

func extractText(msg *anthropic.Message) string {
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok && v.Text != "" {
			return v.Text
		}
	}
	return ""
}

func collectCalls(msg *anthropic.Message) []tools.Call {
	var calls []tools.Call
	for _, block := range msg.Content {
		v, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		params := map[string]any{}
		if len(v.Input) > 0 {
			_ = json.Unmarshal(v.Input, &params)
		}
		calls = append(calls, tools.Call{ID: v.ID, Name: v.Name, Params: params})
	}
	return calls
}
