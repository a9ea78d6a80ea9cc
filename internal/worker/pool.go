package worker

import (
	"context"
	"sync"
)

// Outcome is the result of one task. Index is the task's position in the
// input, so outcomes can be returned in submission order.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// Task is a unit of work run by a Pool
type Task[T any] func(ctx context.Context) (T, error)

// Pool runs tasks on a fixed number of workers
type Pool[T any] struct {
	workers int
	onDone  func(Outcome[T])
}

// NewPool creates a pool with the given number of workers
func NewPool[T any](workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T]{workers: workers}
}

// OnDone registers a callback invoked once per finished task. Calls are
// serialized, so the callback needs no locking of its own.
func (p *Pool[T]) OnDone(fn func(Outcome[T])) *Pool[T] {
	p.onDone = fn
	return p
}

// Run executes all tasks and returns their outcomes in input order.
// Tasks not yet started when ctx is cancelled report ctx.Err().
func (p *Pool[T]) Run(ctx context.Context, tasks []Task[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	workers := p.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	jobs := make(chan int)
	var (
		wg     sync.WaitGroup
		doneMu sync.Mutex
	)

	finish := func(o Outcome[T]) {
		outcomes[o.Index] = o
		if p.onDone != nil {
			doneMu.Lock()
			p.onDone(o)
			doneMu.Unlock()
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					finish(Outcome[T]{Index: i, Err: err})
					continue
				}
				v, err := tasks[i](ctx)
				finish(Outcome[T]{Index: i, Value: v, Err: err})
			}
		}()
	}

	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// Map applies fn to every item with at most workers in flight and returns
// the outcomes in item order
func Map[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, item In) (Out, error)) []Outcome[Out] {
	tasks := make([]Task[Out], len(items))
	for i, item := range items {
		tasks[i] = func(ctx context.Context) (Out, error) {
			return fn(ctx, item)
		}
	}
	return NewPool[Out](workers).Run(ctx, tasks)
}
