package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/pasabayan/chatd/internal/convo"
	"github.com/pasabayan/chatd/internal/tools"
)

// Turn is one conversation message. Persisted turns carry plain text;
// within a turn the same shape also carries the tool_use and tool_result
// blocks the provider protocol needs between rounds.
type Turn struct {
	Role   string  `json:"role"`
	Blocks []Block `json:"blocks"`
}

// Block is one content block of a turn.
type Block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

const (
	blockText       = "text"
	blockToolUse    = "tool_use"
	blockToolResult = "tool_result"
)

// UserTurn wraps a plain user message.
func UserTurn(text string) Turn {
	return Turn{
		Role:   "user",
		Blocks: []Block{{Type: blockText, Text: text}},
	}
}

// AssistantTurn wraps a plain assistant answer. Only final answers are
// persisted; tool exchanges stay within the turn that produced them.
func AssistantTurn(text string) Turn {
	return Turn{
		Role:   "assistant",
		Blocks: []Block{{Type: blockText, Text: text}},
	}
}

// responseTurn captures a model response, keeping text and tool_use blocks.
func responseTurn(msg *anthropic.Message) Turn {
	turn := Turn{Role: "assistant"}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			turn.Blocks = append(turn.Blocks, Block{Type: blockText, Text: v.Text})
		case anthropic.ToolUseBlock:
			turn.Blocks = append(turn.Blocks, Block{
				Type:  blockToolUse,
				ID:    v.ID,
				Name:  v.Name,
				Input: json.RawMessage(v.Input),
			})
		}
	}
	return turn
}

// toolResultsTurn wraps tool outcomes as the user-role message the protocol
// expects after a tool_use response.
func toolResultsTurn(results []tools.Result) Turn {
	turn := Turn{Role: "user"}
	for _, r := range results {
		turn.Blocks = append(turn.Blocks, Block{
			Type:      blockToolResult,
			ToolUseID: r.ID,
			Content:   r.Text,
			IsError:   r.IsError,
		})
	}
	return turn
}

// toMessageParam rebuilds the provider message for a stored turn.
func toMessageParam(turn Turn) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Blocks))
	for _, b := range turn.Blocks {
		switch b.Type {
		case blockText:
			blocks = append(blocks, anthropic.NewTextBlock(b.Text))
		case blockToolUse:
			var input any
			if len(b.Input) > 0 {
				_ = json.Unmarshal(b.Input, &input)
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    b.ID,
					Name:  b.Name,
					Input: input,
				},
			})
		case blockToolResult:
			blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
		}
	}

	if turn.Role == "assistant" {
		return anthropic.NewAssistantMessage(blocks...)
	}
	return anthropic.NewUserMessage(blocks...)
}

// Text joins the visible text blocks of a turn, skipping tool plumbing.
func (t Turn) Text() string {
	var parts []string
	for _, b := range t.Blocks {
		if b.Type == blockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// EncodeTurn serializes a turn into a storable conversation message.
func EncodeTurn(turn Turn) (convo.Message, error) {
	payload, err := json.Marshal(turn)
	if err != nil {
		return convo.Message{}, fmt.Errorf("encode turn: %w", err)
	}
	return convo.Message{Role: turn.Role, Payload: payload}, nil
}

// DecodeTurns restores turns from stored conversation messages.
func DecodeTurns(msgs []convo.Message) ([]Turn, error) {
	turns := make([]Turn, 0, len(msgs))
	for i, m := range msgs {
		var turn Turn
		if err := json.Unmarshal(m.Payload, &turn); err != nil {
			return nil, fmt.Errorf("decode turn %d: %w", i, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
