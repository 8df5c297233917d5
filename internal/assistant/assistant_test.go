package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabayan/chatd/internal/convo"
	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/log"
	"github.com/pasabayan/chatd/internal/tools"
)

// fakeCompletion replays a scripted sequence of responses and records every
// request it receives.
type fakeCompletion struct {
	responses []*anthropic.Message
	requests  []anthropic.MessageNewParams
}

func (f *fakeCompletion) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.requests = append(f.requests, params)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	msg := f.responses[0]
	f.responses = f.responses[1:]
	return msg, nil
}

func textResponse(t *testing.T, text string) *anthropic.Message {
	t.Helper()
	return decodeMessage(t, fmt.Sprintf(`{
		"role": "assistant",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": %q}]
	}`, text))
}

func toolUseResponse(t *testing.T, id, name, input string) *anthropic.Message {
	t.Helper()
	return decodeMessage(t, fmt.Sprintf(`{
		"role": "assistant",
		"stop_reason": "tool_use",
		"content": [{"type": "tool_use", "id": %q, "name": %q, "input": %s}]
	}`, id, name, input))
}

func decodeMessage(t *testing.T, raw string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func newTestAssistant(t *testing.T, fake *fakeCompletion, reg *tools.Registry) *Assistant {
	t.Helper()
	gw, err := gateway.New(gateway.Config{BaseURL: "http://gateway.invalid"})
	require.NoError(t, err)

	a := &Assistant{
		client:   fake,
		registry: reg,
		gateway:  gw,
		logger:   log.NewNop(),
	}
	a.applyDefaults()
	return a
}

func stubRegistry(t *testing.T, reply string) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(log.NewNop())
	require.NoError(t, reg.Register(tools.Tool{
		Name:        "get_trip",
		Description: "Get a trip by id",
		Schema: tools.Schema{
			"trip_id": {Kind: tools.KindNumber, Description: "Trip id"},
		},
		Handler: func(_ context.Context, p tools.Params, _ *gateway.Client) (string, error) {
			id := p.Int("trip_id")
			return fmt.Sprintf("%s #%d", reply, id), nil
		},
	}))
	return reg
}

func TestRespondTextOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		textResponse(t, "Pasabayan connects travelers with senders."),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))

	reply, err := a.Respond(context.Background(), identity.Context{Mode: identity.ModeUser}, nil, "What is Pasabayan?")
	require.NoError(t, err)

	assert.Equal(t, "Pasabayan connects travelers with senders.", reply.Text)
	assert.Empty(t, reply.ToolsUsed)

	// One request, carrying the tool catalog and the user prompt.
	require.Len(t, fake.requests, 1)
	assert.Len(t, fake.requests[0].Tools, 1)
	require.Len(t, fake.requests[0].System, 1)
	assert.Contains(t, fake.requests[0].System[0].Text, "Pasabayan")
}

func TestRespondToolLoop(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "get_trip", `{"trip_id": 7}`),
		textResponse(t, "Here are the trip details."),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))

	reply, err := a.Respond(context.Background(), identity.Context{Mode: identity.ModeUser}, nil, "Show trip 7")
	require.NoError(t, err)

	assert.Equal(t, "Here are the trip details.", reply.Text)
	assert.Equal(t, []string{"get_trip"}, reply.ToolsUsed)

	// Second request replays the tool exchange: user, assistant tool_use,
	// user tool_result; the result text made it back to the provider.
	require.Len(t, fake.requests, 2)
	require.Len(t, fake.requests[1].Messages, 3)
	resultMsg, err := json.Marshal(fake.requests[1].Messages[2])
	require.NoError(t, err)
	assert.Contains(t, string(resultMsg), "toolu_1")
	assert.Contains(t, string(resultMsg), "Trip #7")
}

func TestRespondDeduplicatesToolsUsed(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "get_trip", `{"trip_id": 1}`),
		toolUseResponse(t, "toolu_2", "get_trip", `{"trip_id": 2}`),
		textResponse(t, "Both trips fetched."),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))

	reply, err := a.Respond(context.Background(), identity.Context{Mode: identity.ModeUser}, nil, "Compare trips 1 and 2")
	require.NoError(t, err)

	assert.Equal(t, []string{"get_trip"}, reply.ToolsUsed)
}

func TestRespondFallbackOnEmptyText(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		decodeMessage(t, `{"role": "assistant", "stop_reason": "end_turn", "content": []}`),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))

	reply, err := a.Respond(context.Background(), identity.Context{Mode: identity.ModeUser}, nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, reply.Text)
}

func TestRespondRoundCapWithholdsTools(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "get_trip", `{"trip_id": 1}`),
		toolUseResponse(t, "toolu_2", "get_trip", `{"trip_id": 2}`),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))
	a.maxRounds = 2

	reply, err := a.Respond(context.Background(), identity.Context{Mode: identity.ModeUser}, nil, "loop forever")
	require.NoError(t, err)

	// The last round withholds tools; if the model still never answers in
	// text, the turn ends noting the limit.
	assert.Equal(t, roundLimitReply, reply.Text)
	require.Len(t, fake.requests, 2)
	assert.NotEmpty(t, fake.requests[0].Tools)
	assert.Empty(t, fake.requests[1].Tools)
}

func TestRespondStreamEvents(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "get_trip", `{"trip_id": 1}`),
		toolUseResponse(t, "toolu_2", "get_trip", `{"trip_id": 2}`),
		textResponse(t, "All done."),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))

	var events []Event
	reply, err := a.RespondStream(context.Background(), identity.Context{Mode: identity.ModeQA}, nil, "go", func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)
	assert.Equal(t, "All done.", reply.Text)

	// Tool progress is announced once even across multiple rounds.
	require.Len(t, events, 3)
	assert.Equal(t, EventTool, events[0].Type)
	assert.Equal(t, "Fetching data...", events[0].Content)
	assert.Equal(t, EventText, events[1].Type)
	assert.Equal(t, "All done.", events[1].Content)
	assert.Equal(t, EventDone, events[2].Type)
}

func TestRespondUsesHistory(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletion{responses: []*anthropic.Message{
		textResponse(t, "As I said, trip 7 departs tomorrow."),
	}}
	a := newTestAssistant(t, fake, stubRegistry(t, "Trip"))

	history := []Turn{
		UserTurn("Show trip 7"),
		AssistantTurn("Trip 7 departs tomorrow."),
	}
	_, err := a.Respond(context.Background(), identity.Context{Mode: identity.ModeUser}, history, "When does it leave?")
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	assert.Len(t, fake.requests[0].Messages, 3)
}

func TestPromptSelection(t *testing.T) {
	t.Parallel()

	assert.Contains(t, promptFor(identity.ModeAdmin), "full platform access")
	assert.Contains(t, promptFor(identity.ModeDeveloper), "developer assistant")
	assert.Contains(t, promptFor(identity.ModeQA), "QA assistant")
	assert.Contains(t, promptFor(identity.ModeUser), "friendly Pasabayan assistant")
}

func TestTranscriptRoundTrip(t *testing.T) {
	t.Parallel()

	turns := []Turn{
		UserTurn("hello"),
		{
			Role: "assistant",
			Blocks: []Block{
				{Type: blockToolUse, ID: "toolu_1", Name: "get_trip", Input: json.RawMessage(`{"trip_id":7}`)},
			},
		},
		{
			Role: "user",
			Blocks: []Block{
				{Type: blockToolResult, ToolUseID: "toolu_1", Content: "Trip #7", IsError: false},
			},
		},
	}

	msgs := make([]convo.Message, 0, len(turns))
	for _, turn := range turns {
		msg, err := EncodeTurn(turn)
		require.NoError(t, err)
		assert.Equal(t, turn.Role, msg.Role)
		msgs = append(msgs, msg)
	}

	stored, err := DecodeTurns(msgs)
	require.NoError(t, err)
	require.Len(t, stored, len(turns))

	assert.Equal(t, turns[0].Text(), stored[0].Text())
	assert.Equal(t, "get_trip", stored[1].Blocks[0].Name)
	assert.JSONEq(t, `{"trip_id":7}`, string(stored[1].Blocks[0].Input))
	assert.Equal(t, "Trip #7", stored[2].Blocks[0].Content)
}
