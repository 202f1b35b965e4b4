// Package complete implements the completion façade consumed by editor
// integrations. It ties the supervised server, the workspace resolver
// and the request client together behind two calls: GatherCandidates
// and CompletePosition.
package complete

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/solargraph-ai/solarbridge/internal/event"
	"github.com/solargraph-ai/solarbridge/internal/logging"
	"github.com/solargraph-ai/solarbridge/internal/rpc"
	"github.com/solargraph-ai/solarbridge/internal/workspace"
	"github.com/solargraph-ai/solarbridge/pkg/types"
)

// NoCompletion is the sentinel returned by CompletePosition when the
// current line ends with no identifier-like token.
const NoCompletion = -1

// Trailing identifier characters, including Ruby's ? and ! method suffixes.
var identTail = regexp.MustCompile(`[a-zA-Z0-9_?!]*$`)

// ServerHandle is the slice of the supervisor the orchestrator needs.
type ServerHandle interface {
	Start(ctx context.Context) error
	Stop()
	IsStarted() bool
	URL() string
}

// Reporter receives user-visible error messages. Startup and transport
// failures never propagate past the orchestrator; they are reported here
// and the editor gets an empty candidate list.
type Reporter interface {
	Report(msg string)
}

// LogReporter reports through the structured logger.
type LogReporter struct{}

func (LogReporter) Report(msg string) {
	logging.Error().Msg(msg)
}

// Orchestrator is the editor-facing completion façade. It is safe for
// concurrent use; the HTTP server calls it from per-request goroutines.
type Orchestrator struct {
	server   ServerHandle
	resolver *workspace.Resolver
	reporter Reporter
	bus      *event.Bus

	mu     sync.Mutex
	client *rpc.Client
}

// New creates an orchestrator. A nil reporter falls back to LogReporter;
// the bus may be nil.
func New(server ServerHandle, resolver *workspace.Resolver, reporter Reporter, bus *event.Bus) *Orchestrator {
	if reporter == nil {
		reporter = LogReporter{}
	}
	if resolver == nil {
		resolver = workspace.NewResolver(nil)
	}
	return &Orchestrator{
		server:   server,
		resolver: resolver,
		reporter: reporter,
		bus:      bus,
	}
}

// ensureStarted lazily starts the server and returns a client bound to
// its current endpoint. The mutex spans the start check so concurrent
// callers on a cold bridge trigger one startup and share one client.
func (o *Orchestrator) ensureStarted(ctx context.Context) (*rpc.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.server.IsStarted() {
		if err := o.server.Start(ctx); err != nil {
			return nil, err
		}
	}
	if o.client == nil || o.client.BaseURL() != o.server.URL() {
		o.client = rpc.NewClient(o.server.URL())
	}
	return o.client, nil
}

// GatherCandidates returns completion candidates for the cursor position.
// line is zero-based; column is the completion-start offset within it.
// All failures degrade to an empty list plus a single report.
func (o *Orchestrator) GatherCandidates(ctx context.Context, text string, line, column int, filePath string) []types.Candidate {
	client, err := o.ensureStarted(ctx)
	if err != nil {
		o.fail(filePath, err.Error())
		return []types.Candidate{}
	}

	ws := o.resolver.Find(filePath)

	resp, err := client.Suggest(ctx, text, line, column, rpc.SuggestOptions{
		Filename:  filePath,
		Workspace: ws,
	})
	if err != nil {
		o.fail(filePath, err.Error())
		return []types.Candidate{}
	}

	if !resp.OK() {
		o.fail(filePath, fmt.Sprintf("suggest returned status %q: %s", resp.Status, resp.Message))
		return []types.Candidate{}
	}

	candidates := make([]types.Candidate, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		candidates = append(candidates, types.Candidate{
			InsertText: s.Insert,
			Kind:       s.Kind,
			Abbr:       buildAbbr(s),
			Label:      s.Label,
			Detail:     s.Detail,
			Arguments:  s.Arguments,
			Duplicate:  true,
		})
	}
	return candidates
}

// Define returns definition suggestions for the symbol at the cursor.
func (o *Orchestrator) Define(ctx context.Context, text string, line, column int, filePath string) (*rpc.SuggestResponse, error) {
	client, err := o.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}
	return client.Define(ctx, text, line, column, filePath, o.resolver.Find(filePath))
}

// Signify returns signature suggestions for the call at the cursor.
func (o *Orchestrator) Signify(ctx context.Context, text string, line, column int, filePath string) (*rpc.SuggestResponse, error) {
	client, err := o.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}
	return client.Signify(ctx, text, line, column, filePath, o.resolver.Find(filePath))
}

// Resolve returns documentation for a fully qualified symbol path.
func (o *Orchestrator) Resolve(ctx context.Context, path, filePath string) (*rpc.SuggestResponse, error) {
	client, err := o.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}
	return client.Resolve(ctx, path, filePath, o.resolver.Find(filePath))
}

// Prepare warms up the workspace containing filePath.
func (o *Orchestrator) Prepare(ctx context.Context, filePath string) (*rpc.StatusResponse, error) {
	client, err := o.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}
	return client.Prepare(ctx, o.resolver.Find(filePath))
}

// Update tells the server that filePath changed on disk.
func (o *Orchestrator) Update(ctx context.Context, filePath string) (*rpc.StatusResponse, error) {
	client, err := o.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}
	return client.Update(ctx, filePath, o.resolver.Find(filePath))
}

func (o *Orchestrator) fail(filePath, msg string) {
	o.reporter.Report(msg)
	if o.bus != nil {
		o.bus.Publish(event.Event{
			Type: event.CompletionFailed,
			Data: event.CompletionFailedData{Filename: filePath, Error: msg},
		})
	}
}

// buildAbbr computes the display abbreviation for a suggestion: method
// suggestions get a parenthesized, comma-joined argument list appended.
func buildAbbr(s rpc.Suggestion) string {
	if s.Kind != "Method" {
		return s.Label
	}
	return s.Label + "(" + strings.Join(s.Arguments, ", ") + ")"
}

// CompletePosition returns the offset where the trailing identifier-like
// token of the typed line starts, or NoCompletion when the line ends
// with no such token.
func CompletePosition(input string) int {
	loc := identTail.FindStringIndex(input)
	if loc == nil || loc[0] == loc[1] {
		return NoCompletion
	}
	return loc[0]
}
