package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"quill/config"
	"quill/llm"
	"quill/logging"
)

type stubAdapter struct {
	reply     string
	err       error
	panicking bool
	closes    *int32
}

func (s *stubAdapter) Send(ctx context.Context, messages []llm.Message) (*llm.Message, error) {
	if s.panicking {
		panic("stub adapter exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Message{Role: "assistant", Content: s.reply, Timestamp: time.Now()}, nil
}

func (s *stubAdapter) ModelName() string { return "stub" }

func (s *stubAdapter) IsAvailable() bool { return true }

func (s *stubAdapter) Close() error {
	atomic.AddInt32(s.closes, 1)
	return nil
}

type stubFactory struct {
	adapter *stubAdapter
	created int32
}

func (f *stubFactory) create(provider string, pc config.ProviderConfig) (llm.Adapter, error) {
	atomic.AddInt32(&f.created, 1)
	return f.adapter, nil
}

func newTestEngine(t *testing.T, adapter *stubAdapter) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AI.Providers["stub"] = config.ProviderConfig{Model: "stub-model"}

	e := New(cfg, logging.Nop())
	if adapter != nil {
		f := &stubFactory{adapter: adapter}
		e.newAdapter = f.create
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func waitResults(t *testing.T, e *Engine, n int) []Result {
	t.Helper()
	var results []Result
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.DrainResults(func(r Result) { results = append(results, r) })
		if len(results) >= n {
			return results
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("got %d results, want %d", len(results), n)
	return nil
}

func chatTask(id, prompt string) Task {
	return Task{ID: id, Kind: TaskKindAIChat, Provider: "stub", Prompt: prompt}
}

func TestStartIsIdempotent(t *testing.T) {
	e := newTestEngine(t, &stubAdapter{reply: "ok", closes: new(int32)})
	if err := e.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if !e.Running() {
		t.Error("engine not running after Start")
	}
}

func TestStopIsRestartable(t *testing.T) {
	adapter := &stubAdapter{reply: "ok", closes: new(int32)}
	e := newTestEngine(t, adapter)

	e.Stop()
	if e.Running() {
		t.Fatal("engine still running after Stop")
	}
	if err := e.SubmitTask(chatTask("t1", "hi")); err == nil {
		t.Fatal("SubmitTask accepted while stopped")
	}

	if err := e.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if err := e.SubmitTask(chatTask("t2", "hi")); err != nil {
		t.Fatalf("SubmitTask after restart failed: %v", err)
	}
	results := waitResults(t, e, 1)
	if results[0].TaskID != "t2" || results[0].Status != StatusDone {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestSuccessfulTaskClosesAdapterOnce(t *testing.T) {
	closes := new(int32)
	e := newTestEngine(t, &stubAdapter{reply: "the answer", closes: closes})

	if err := e.SubmitTask(chatTask("t1", "question")); err != nil {
		t.Fatalf("SubmitTask failed: %v", err)
	}

	results := waitResults(t, e, 1)
	if results[0].Status != StatusDone || results[0].Content != "the answer" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if n := atomic.LoadInt32(closes); n != 1 {
		t.Errorf("adapter closed %d times, want 1", n)
	}
}

func TestSendErrorClosesAdapterOnce(t *testing.T) {
	closes := new(int32)
	e := newTestEngine(t, &stubAdapter{err: errors.New("rate limited"), closes: closes})

	e.SubmitTask(chatTask("t1", "question"))
	results := waitResults(t, e, 1)

	if results[0].Status != StatusError || !strings.Contains(results[0].Err, "rate limited") {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if n := atomic.LoadInt32(closes); n != 1 {
		t.Errorf("adapter closed %d times, want 1", n)
	}
}

func TestWorkerPanicBecomesTaskError(t *testing.T) {
	closes := new(int32)
	e := newTestEngine(t, &stubAdapter{panicking: true, closes: closes})

	e.SubmitTask(chatTask("t1", "question"))
	results := waitResults(t, e, 1)

	if results[0].Status != StatusError || !strings.Contains(results[0].Err, "task panic") {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if n := atomic.LoadInt32(closes); n != 1 {
		t.Errorf("adapter closed %d times, want 1", n)
	}
}

func TestTaskValidation(t *testing.T) {
	adapter := &stubAdapter{reply: "ok", closes: new(int32)}
	factory := &stubFactory{adapter: adapter}
	e := newTestEngine(t, nil)
	e.newAdapter = factory.create

	cases := []struct {
		name    string
		task    Task
		wantErr string
	}{
		{"unknown kind", Task{ID: "a", Kind: "compile"}, "unknown task type"},
		{"missing provider", Task{ID: "b", Kind: TaskKindAIChat, Prompt: "hi"}, "requires a provider"},
		{"missing prompt", Task{ID: "c", Kind: TaskKindAIChat, Provider: "stub"}, "requires a prompt"},
		{"unknown provider", Task{ID: "d", Kind: TaskKindAIChat, Provider: "nope", Prompt: "hi"}, "unknown provider"},
	}

	for _, tc := range cases {
		if err := e.SubmitTask(tc.task); err != nil {
			t.Fatalf("%s: SubmitTask failed: %v", tc.name, err)
		}
	}

	results := waitResults(t, e, len(cases))
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.TaskID] = r
	}
	for _, tc := range cases {
		r, ok := byID[tc.task.ID]
		if !ok {
			t.Fatalf("%s: no result delivered", tc.name)
		}
		if r.Status != StatusError || !strings.Contains(r.Err, tc.wantErr) {
			t.Errorf("%s: result = %+v, want error containing %q", tc.name, r, tc.wantErr)
		}
	}
	if n := atomic.LoadInt32(&factory.created); n != 0 {
		t.Errorf("factory invoked %d times for invalid tasks, want 0", n)
	}
}

func TestEveryTaskGetsExactlyOneResult(t *testing.T) {
	e := newTestEngine(t, &stubAdapter{reply: "ok", closes: new(int32)})

	const n = 10
	for i := 0; i < n; i++ {
		if err := e.SubmitTask(chatTask(string(rune('a'+i)), "hi")); err != nil {
			t.Fatalf("SubmitTask %d failed: %v", i, err)
		}
	}

	results := waitResults(t, e, n)
	seen := make(map[string]int)
	for _, r := range results {
		seen[r.TaskID]++
	}
	if len(seen) != n {
		t.Fatalf("got results for %d distinct tasks, want %d", len(seen), n)
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("task %s delivered %d results, want 1", id, count)
		}
	}
}
