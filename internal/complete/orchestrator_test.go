package complete

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solargraph-ai/solarbridge/internal/rpc"
	"github.com/solargraph-ai/solarbridge/internal/supervisor"
	"github.com/solargraph-ai/solarbridge/internal/workspace"
)

// fakeHandle stands in for the supervisor.
type fakeHandle struct {
	mu       sync.Mutex
	url      string
	started  bool
	startErr error
	starts   int
}

func (f *fakeHandle) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeHandle) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
}

func (f *fakeHandle) IsStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeHandle) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return ""
	}
	return f.url
}

func (f *fakeHandle) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// countReporter counts reports.
type countReporter struct {
	mu    sync.Mutex
	count int32
	last  string
}

func (r *countReporter) Report(msg string) {
	atomic.AddInt32(&r.count, 1)
	r.mu.Lock()
	r.last = msg
	r.mu.Unlock()
}

func (r *countReporter) lastMsg() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func suggestStub(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGatherCandidatesMapsSuggestions(t *testing.T) {
	srv := suggestStub(t, `{
		"status": "ok",
		"suggestions": [
			{"insert": "upcase", "kind": "Method", "label": "upcase", "detail": "String", "arguments": []},
			{"insert": "UTF_8", "kind": "Constant", "label": "UTF_8", "detail": "Encoding", "arguments": []}
		]
	}`)

	handle := &fakeHandle{url: srv.URL}
	reporter := &countReporter{}
	o := New(handle, nil, reporter, nil)

	candidates := o.GatherCandidates(context.Background(), "\"a\".upc", 0, 4, "")
	require.Len(t, candidates, 2)

	assert.Equal(t, "upcase", candidates[0].InsertText)
	assert.Equal(t, "Method", candidates[0].Kind)
	assert.Equal(t, "upcase()", candidates[0].Abbr)
	assert.Equal(t, "String", candidates[0].Detail)
	assert.True(t, candidates[0].Duplicate)

	assert.Equal(t, "UTF_8", candidates[1].Abbr, "non-callable kinds keep the bare label")
	assert.Equal(t, int32(0), atomic.LoadInt32(&reporter.count))
}

func TestGatherCandidatesStartsLazily(t *testing.T) {
	srv := suggestStub(t, `{"status":"ok","suggestions":[]}`)
	handle := &fakeHandle{url: srv.URL}
	o := New(handle, nil, &countReporter{}, nil)

	o.GatherCandidates(context.Background(), "x", 0, 1, "")
	o.GatherCandidates(context.Background(), "x", 0, 1, "")

	assert.Equal(t, 1, handle.startCount(), "start only on first use")
}

func TestGatherCandidatesConcurrent(t *testing.T) {
	srv := suggestStub(t, `{"status":"ok","suggestions":[]}`)
	handle := &fakeHandle{url: srv.URL}
	o := New(handle, nil, &countReporter{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			candidates := o.GatherCandidates(context.Background(), "x", 0, 1, "")
			assert.NotNil(t, candidates)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, handle.startCount(), "concurrent first use starts the server once")
}

func TestGatherCandidatesStartupFailure(t *testing.T) {
	handle := &fakeHandle{startErr: &supervisor.StartupError{Output: "bundler: command not found\n"}}
	reporter := &countReporter{}
	o := New(handle, nil, reporter, nil)

	candidates := o.GatherCandidates(context.Background(), "x", 0, 1, "/src/app.rb")

	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reporter.count))
	assert.Contains(t, reporter.lastMsg(), "bundler: command not found")
}

func TestGatherCandidatesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	handle := &fakeHandle{url: srv.URL}
	reporter := &countReporter{}
	o := New(handle, nil, reporter, nil)

	candidates := o.GatherCandidates(context.Background(), "x", 0, 1, "/src/app.rb")

	assert.Empty(t, candidates)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reporter.count), "exactly one report per failure")
}

func TestGatherCandidatesSoftFailure(t *testing.T) {
	srv := suggestStub(t, `{"status":"err","message":"workspace not ready"}`)
	handle := &fakeHandle{url: srv.URL}
	reporter := &countReporter{}
	o := New(handle, nil, reporter, nil)

	candidates := o.GatherCandidates(context.Background(), "x", 0, 1, "")

	assert.Empty(t, candidates)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reporter.count))
	assert.Contains(t, reporter.lastMsg(), "workspace not ready")
}

func TestGatherCandidatesResolvesWorkspace(t *testing.T) {
	var gotWorkspace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotWorkspace = r.PostForm.Get("workspace")
		_, _ = w.Write([]byte(`{"status":"ok","suggestions":[]}`))
	}))
	t.Cleanup(srv.Close)

	tmpDir := t.TempDir()
	require.NoError(t, writeGemfile(tmpDir))

	handle := &fakeHandle{url: srv.URL}
	o := New(handle, workspace.NewResolver(nil), &countReporter{}, nil)

	o.GatherCandidates(context.Background(), "x", 0, 1, tmpDir+"/app.rb")
	assert.Equal(t, tmpDir, gotWorkspace)
}

func writeGemfile(dir string) error {
	return os.WriteFile(filepath.Join(dir, "Gemfile"), nil, 0644)
}

func TestBuildAbbr(t *testing.T) {
	method := rpc.Suggestion{Label: "sum", Kind: "Method", Arguments: []string{"a", "b"}}
	assert.Equal(t, "sum(a, b)", buildAbbr(method))

	noArgs := rpc.Suggestion{Label: "to_s", Kind: "Method"}
	assert.Equal(t, "to_s()", buildAbbr(noArgs))

	constant := rpc.Suggestion{Label: "PI", Kind: "Constant", Arguments: []string{"ignored"}}
	assert.Equal(t, "PI", buildAbbr(constant))
}

func TestCompletePosition(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"user.na", 5},
		{"  value", 2},
		{"obj.save!", 4},
		{"empty?", 0},
		{"x = y + ", NoCompletion},
		{"", NoCompletion},
		{"arr[", NoCompletion},
		{"total_2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompletePosition(tt.input))
		})
	}
}
