// Package workers is a small fixed-size task pool used by the background
// integrations (notification fan-out, account status sync).
package workers

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

//go:generate mockgen -source=workerpool.go -destination=workerpool_mock.go -package=workers

type PoolI interface {
	AddTask(ctx context.Context, task Task) error
	Close()
}

type Task func() error

type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
	once  sync.Once
}

func NewPool(size int) *Pool {
	p := &Pool{tasks: make(chan Task, size)}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		if err := task(); err != nil {
			zap.L().Error("task execution failed", zap.Error(err))
		}
	}
}

func (p *Pool) AddTask(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	}
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
