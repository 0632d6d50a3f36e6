package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"quill/config"
	"quill/llm"
	"quill/logging"
	"quill/queue"
)

// TaskKindAIChat is the only task kind currently handled.
const TaskKindAIChat = "ai_chat"

const (
	maxConcurrentTasks = 4
	startTimeout       = 2 * time.Second
	stopTimeout        = 5 * time.Second
)

// Task describes one unit of background work.
type Task struct {
	ID       string
	Kind     string
	Provider string
	Prompt   string
	Filename string
	Buffer   string
}

// Result statuses on the outbound queue.
const (
	StatusDone  = "done"
	StatusError = "task_error"
)

// Result is the outcome of one task. Err is set when Status is task_error;
// TaskKind names the originating task so the UI can attribute the failure.
type Result struct {
	TaskID   string
	TaskKind string
	Status   string
	Content  string
	Err      string
}

// adapterFactory builds a provider client for one task. Swapped in tests.
type adapterFactory func(provider string, pc config.ProviderConfig) (llm.Adapter, error)

// Engine runs AI chat tasks on background workers and delivers every outcome
// through a single result queue. Each task gets its own provider client,
// created when the task starts and closed when it finishes, on both the
// success and the error path.
type Engine struct {
	logger     logging.Logger
	newAdapter adapterFactory

	mu      sync.Mutex
	cfg     *config.Config
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}

	tasks   *queue.Queue[Task]
	results *queue.Queue[Result]
}

// New creates a task engine. Call Start before submitting tasks.
func New(cfg *config.Config, logger logging.Logger) *Engine {
	return &Engine{
		logger:     logging.OrNop(logger),
		newAdapter: llm.CreateAdapter,
		cfg:        cfg,
		tasks:      queue.New[Task](),
		results:    queue.New[Result](),
	}
}

// UpdateConfig applies a reloaded configuration. Tasks already in flight
// keep the providers they were created with.
func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Running reports whether the scheduler goroutine is up.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start launches the scheduler goroutine. Starting an already running engine
// is a no-op. It waits a bounded time for the scheduler to confirm it is up.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.wake = make(chan struct{}, 1)
	started := make(chan struct{})

	go e.run(ctx, started, e.done, e.wake)

	e.mu.Unlock()

	select {
	case <-started:
	case <-time.After(startTimeout):
		cancel()
		return fmt.Errorf("task engine failed to start within %s", startTimeout)
	}

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	e.logger.Info("task engine started")
	return nil
}

// Stop shuts the scheduler down and cancels in-flight tasks. The engine can
// be started again afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		e.logger.Warn("task engine did not stop within %s", stopTimeout)
	}
	e.logger.Info("task engine stopped")
}

// SubmitTask queues a task for execution. Returns an error when the engine
// is not running; validation of the task itself happens on the worker and
// surfaces as a task_error result.
func (e *Engine) SubmitTask(task Task) error {
	e.mu.Lock()
	running := e.running
	wake := e.wake
	e.mu.Unlock()

	if !running {
		return fmt.Errorf("task engine is not running")
	}

	e.tasks.Put(task)
	select {
	case wake <- struct{}{}:
	default:
	}
	return nil
}

// DrainResults forwards every pending result to apply and reports whether
// any arrived. Called from the foreground thread each tick.
func (e *Engine) DrainResults(apply func(Result)) bool {
	changed := false
	for {
		result, ok := e.results.TryPop()
		if !ok {
			return changed
		}
		apply(result)
		changed = true
	}
}

// Close stops the engine and closes its queues; late results are dropped.
func (e *Engine) Close() {
	e.Stop()
	e.tasks.Close()
	e.results.Close()
}

// run is the scheduler loop: it drains the task queue whenever woken and
// hands each task to a worker goroutine, capped by a weighted semaphore.
func (e *Engine) run(ctx context.Context, started, done, wake chan struct{}) {
	defer close(done)

	sem := semaphore.NewWeighted(maxConcurrentTasks)
	var workers sync.WaitGroup
	close(started)

	for {
		select {
		case <-ctx.Done():
			workers.Wait()
			return
		case <-wake:
		}

		for {
			task, ok := e.tasks.TryPop()
			if !ok {
				break
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				// Shutdown raced the submit; the task is dropped.
				break
			}
			workers.Add(1)
			go func(task Task) {
				defer workers.Done()
				defer sem.Release(1)
				e.results.Put(e.executeTask(ctx, task))
			}(task)
		}
	}
}

// executeTask runs one task to completion. Worker panics become task_error
// results rather than crashing the scheduler.
func (e *Engine) executeTask(ctx context.Context, task Task) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task %s panicked: %v", task.ID, r)
			result = errorResult(task, fmt.Sprintf("task panic: %v", r))
		}
	}()

	if task.Kind != TaskKindAIChat {
		return errorResult(task, fmt.Sprintf("unknown task type: %q", task.Kind))
	}
	if task.Provider == "" {
		return errorResult(task, "ai_chat task requires a provider")
	}
	if task.Prompt == "" {
		return errorResult(task, "ai_chat task requires a prompt")
	}

	e.mu.Lock()
	pc, ok := e.cfg.AI.Providers[task.Provider]
	e.mu.Unlock()
	if !ok {
		return errorResult(task, fmt.Sprintf("unknown provider: %q", task.Provider))
	}

	adapter, err := e.newAdapter(task.Provider, pc)
	if err != nil {
		return errorResult(task, err.Error())
	}
	defer adapter.Close()

	messages := llm.BuildChatMessages(task.Prompt, task.Filename, task.Buffer)
	response, err := adapter.Send(ctx, messages)
	if err != nil {
		return errorResult(task, err.Error())
	}

	return Result{TaskID: task.ID, TaskKind: task.Kind, Status: StatusDone, Content: response.Content}
}

func errorResult(task Task, msg string) Result {
	return Result{TaskID: task.ID, TaskKind: task.Kind, Status: StatusError, Err: msg}
}
