// Package progress tracks multi-step task executions in memory and notifies
// subscribers on every step transition.
package progress

import (
	"math"
	"sync"
	"time"
)

// Status describes the lifecycle state of a task or step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step is one unit of work inside a task.
type Step struct {
	Name   string
	Status Status
	Result any
	Error  string
}

// TaskProgress is the mutable record of one logical task. Snapshots handed to
// callers and listeners are copies; the tracker owns the canonical state.
type TaskProgress struct {
	TaskID    string
	Status    Status
	Progress  int
	Steps     []Step
	StartedAt time.Time
	EndedAt   time.Time
	Error     string
}

// Listener receives a snapshot after every mutation of the subscribed task.
type Listener func(TaskProgress)

// Tracker is an in-memory registry of task executions. Operations on unknown
// task ids are no-ops. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	tasks     map[string]*TaskProgress
	listeners map[string]map[uint64]Listener // task id (or "*") -> listeners
	nextSub   uint64
}

// Wildcard subscribes to transitions of every task.
const Wildcard = "*"

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		tasks:     make(map[string]*TaskProgress),
		listeners: make(map[string]map[uint64]Listener),
	}
}

// StartTask registers a task with the given ordered step names and marks it
// running. Restarting an existing id replaces its record.
func (t *Tracker) StartTask(taskID string, stepNames []string) TaskProgress {
	steps := make([]Step, len(stepNames))
	for i, name := range stepNames {
		steps[i] = Step{Name: name, Status: StatusPending}
	}
	task := &TaskProgress{
		TaskID:    taskID,
		Status:    StatusRunning,
		Steps:     steps,
		StartedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	t.tasks[taskID] = task
	snapshot := task.snapshot()
	listeners := t.listenersFor(taskID)
	t.mu.Unlock()

	notify(listeners, snapshot)
	return snapshot
}

// StartStep marks the named step running.
func (t *Tracker) StartStep(taskID, stepName string) {
	t.mutateStep(taskID, stepName, func(step *Step) {
		step.Status = StatusRunning
	})
}

// CompleteStep marks the named step completed with its result.
func (t *Tracker) CompleteStep(taskID, stepName string, result any) {
	t.mutateStep(taskID, stepName, func(step *Step) {
		step.Status = StatusCompleted
		step.Result = result
	})
}

// FailStep marks the named step failed.
func (t *Tracker) FailStep(taskID, stepName string, stepErr error) {
	t.mutateStep(taskID, stepName, func(step *Step) {
		step.Status = StatusFailed
		if stepErr != nil {
			step.Error = stepErr.Error()
		}
	})
}

// CompleteTask marks the task completed.
func (t *Tracker) CompleteTask(taskID string) {
	t.mutateTask(taskID, func(task *TaskProgress) {
		task.Status = StatusCompleted
		task.EndedAt = time.Now().UTC()
	})
}

// FailTask marks the task failed.
func (t *Tracker) FailTask(taskID string, taskErr error) {
	t.mutateTask(taskID, func(task *TaskProgress) {
		task.Status = StatusFailed
		task.EndedAt = time.Now().UTC()
		if taskErr != nil {
			task.Error = taskErr.Error()
		}
	})
}

// Progress returns a snapshot of the task, if known.
func (t *Tracker) Progress(taskID string) (TaskProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[taskID]
	if !ok {
		return TaskProgress{}, false
	}
	return task.snapshot(), true
}

// AllProgress returns snapshots of every tracked task.
func (t *Tracker) AllProgress() []TaskProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TaskProgress, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task.snapshot())
	}
	return out
}

// Subscribe registers a listener for the task id (or Wildcard for all tasks)
// and returns an idempotent unsubscribe closure.
func (t *Tracker) Subscribe(taskID string, listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	t.mu.Lock()
	t.nextSub++
	id := t.nextSub
	set, ok := t.listeners[taskID]
	if !ok {
		set = make(map[uint64]Listener)
		t.listeners[taskID] = set
	}
	set[id] = listener
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if set, ok := t.listeners[taskID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(t.listeners, taskID)
				}
			}
		})
	}
}

func (t *Tracker) mutateStep(taskID, stepName string, mutate func(*Step)) {
	t.mutateTask(taskID, func(task *TaskProgress) {
		for i := range task.Steps {
			if task.Steps[i].Name == stepName {
				mutate(&task.Steps[i])
				return
			}
		}
	})
}

func (t *Tracker) mutateTask(taskID string, mutate func(*TaskProgress)) {
	t.mu.Lock()
	task, ok := t.tasks[taskID]
	if !ok {
		t.mu.Unlock()
		return
	}
	mutate(task)
	task.recompute()
	snapshot := task.snapshot()
	listeners := t.listenersFor(taskID)
	t.mu.Unlock()

	notify(listeners, snapshot)
}

// listenersFor collects the per-task and wildcard listener sets. Caller must
// hold the lock.
func (t *Tracker) listenersFor(taskID string) []Listener {
	var out []Listener
	for _, listener := range t.listeners[taskID] {
		out = append(out, listener)
	}
	if taskID != Wildcard {
		for _, listener := range t.listeners[Wildcard] {
			out = append(out, listener)
		}
	}
	return out
}

func notify(listeners []Listener, snapshot TaskProgress) {
	for _, listener := range listeners {
		listener(snapshot)
	}
}

func (p *TaskProgress) recompute() {
	if len(p.Steps) == 0 {
		p.Progress = 0
		return
	}
	completed := 0
	for _, step := range p.Steps {
		if step.Status == StatusCompleted {
			completed++
		}
	}
	p.Progress = int(math.Round(100 * float64(completed) / float64(len(p.Steps))))
}

func (p *TaskProgress) snapshot() TaskProgress {
	out := *p
	out.Steps = make([]Step, len(p.Steps))
	copy(out.Steps, p.Steps)
	return out
}
