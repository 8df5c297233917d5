package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/log"
)

// Handler executes a tool call against the platform gateway and returns the
// text shown to the model. Expected failures (a lookup that misses, an API
// error worth explaining) should be returned as text with a nil error; a
// non-nil error marks the result as a tool failure.
type Handler func(ctx context.Context, p Params, client *gateway.Client) (string, error)

// Tool is one entry in the catalog.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Handler     Handler
}

// Declaration is the schema-level view of a tool, used to advertise the
// catalog to the model and over MCP.
type Declaration struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Call is a single tool invocation request. ID carries the caller's
// correlation id (the tool_use id) through to the result.
type Call struct {
	ID     string
	Name   string
	Params map[string]any
}

// Result is the outcome of one tool call. IsError is set only for handler
// failures; unknown tools and invalid parameters produce explanatory text
// the model can react to.
type Result struct {
	ID      string
	Name    string
	Text    string
	IsError bool
}

// Registry holds the tool catalog. Registration order is preserved for
// declarations and for the available-tool listing.
type Registry struct {
	tools  map[string]Tool
	names  []string
	logger log.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the catalog.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if t.Handler == nil {
		return fmt.Errorf("register tool %q: nil handler", t.Name)
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("register tool %q: already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.names = append(r.names, t.Name)
	return nil
}

// Names lists the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Declarations returns the catalog in registration order.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		decls = append(decls, Declaration{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema.JSONSchema(),
		})
	}
	return decls
}

// Execute runs a single tool call. It never returns an error: unknown tools
// and parameter violations come back as plain text so the model can correct
// itself, and handler errors or panics come back with IsError set.
func (r *Registry) Execute(ctx context.Context, call Call, client *gateway.Client) (res Result) {
	res = Result{ID: call.ID, Name: call.Name}

	tool, ok := r.tools[call.Name]
	if !ok {
		res.Text = fmt.Sprintf("Unknown tool: %s. Available tools: %s", call.Name, strings.Join(r.names, ", "))
		return res
	}

	params, violations := tool.Schema.Validate(call.Params)
	if len(violations) > 0 {
		res.Text = fmt.Sprintf("Invalid parameters for %s: %s", call.Name, strings.Join(violations, ", "))
		return res
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", call.Name, "panic", rec)
			res.Text = fmt.Sprintf("Error executing %s: internal error", call.Name)
			res.IsError = true
		}
	}()

	start := time.Now()
	text, err := tool.Handler(ctx, params, client)
	r.logger.Debug("tool executed",
		"tool", call.Name,
		"duration", time.Since(start),
		"error", err != nil,
	)

	if err != nil {
		res.Text = fmt.Sprintf("Error executing %s: %v", call.Name, err)
		res.IsError = true
		return res
	}

	res.Text = text
	return res
}

// ExecuteBatch runs the calls concurrently and returns results in call
// order. Individual failures are reflected in each Result; the batch itself
// always completes.
func (r *Registry) ExecuteBatch(ctx context.Context, calls []Call, client *gateway.Client) []Result {
	results := make([]Result, len(calls))

	g, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.Execute(ctx, call, client)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
