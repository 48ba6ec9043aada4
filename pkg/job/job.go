package job

import (
	"context"
	"sync"

	"github.com/ppphp/portagebrowser/pkg/portage"
)

// Func is the body of a job. It should return portage.ErrAborted when it
// stops early because ctx was cancelled.
type Func func(ctx context.Context) error

// Job runs one long operation at a time. The zero value is not usable; use
// New.
type Job struct {
	fn Func

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

func New(fn Func) *Job {
	done := make(chan struct{})
	close(done)
	return &Job{fn: fn, done: done}
}

func (j *Job) begin(parent context.Context) (context.Context, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil, portage.ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	j.running = true
	j.cancel = cancel
	j.done = make(chan struct{})
	j.err = nil
	return ctx, nil
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel()
	j.running = false
	j.err = err
	close(j.done)
}

// Start runs the job in a new goroutine.
func (j *Job) Start(ctx context.Context) error {
	ctx, err := j.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		j.finish(j.fn(ctx))
	}()
	return nil
}

// Run runs the job in the calling goroutine.
func (j *Job) Run(ctx context.Context) error {
	ctx, err := j.begin(ctx)
	if err != nil {
		return err
	}
	err = j.fn(ctx)
	j.finish(err)
	return err
}

func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Abort asks a running job to stop. It does not wait.
func (j *Job) Abort() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		j.cancel()
	}
}

// Wait blocks until the current run ends and returns its error. It returns
// immediately when nothing is running.
func (j *Job) Wait() error {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	<-done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) AbortAndWait() error {
	j.Abort()
	return j.Wait()
}
