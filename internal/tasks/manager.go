package tasks

import (
	"context"
	"sync"
	"time"
)

const MaxLogsPerTask = 1000

// Manager owns the registered background tasks and their schedulers.
// Schedulers stop when Stop is called or the base context is cancelled.
type Manager struct {
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	tasks  sync.Map
}

func NewManager(ctx context.Context) *Manager {
	base, cancel := context.WithCancel(ctx)
	return &Manager{base: base, cancel: cancel}
}

// Register adds a task. A positive interval starts a scheduler that runs the
// task on every tick; zero means trigger-only.
func (m *Manager) Register(name string, interval time.Duration, fn TaskFunc) {
	task := &RunnableTask{
		Name:         name,
		Interval:     interval,
		Handler:      fn,
		registeredAt: time.Now(),
		Logs:         make([]LogEntry, 0),
	}
	m.tasks.Store(name, task)

	if interval > 0 {
		m.wg.Add(1)
		go m.scheduler(task)
	}
}

// Trigger runs a task out of schedule, asynchronously.
func (m *Manager) Trigger(name string) error {
	t, ok := m.tasks.Load(name)
	if !ok {
		return TaskNotFoundError{Name: name}
	}
	task := t.(*RunnableTask)
	go task.Run(m.base)
	return nil
}

func (m *Manager) ListStatus() []TaskStatus {
	var list []TaskStatus
	m.tasks.Range(func(key, value any) bool {
		task := value.(*RunnableTask)
		list = append(list, task.Status())
		return true
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	t, ok := m.tasks.Load(name)
	if !ok {
		return nil, TaskNotFoundError{Name: name}
	}
	task := t.(*RunnableTask)
	return task.GetLogs(), nil
}

// Stop cancels all schedulers and waits for them to exit. A task mid-run
// sees its context cancelled and is expected to return promptly.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) scheduler(task *RunnableTask) {
	defer m.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.base.Done():
			return
		case <-ticker.C:
			task.Run(m.base)
		}
	}
}
