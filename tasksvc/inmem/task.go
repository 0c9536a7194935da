package inmem

import (
	"sync"
	"time"

	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/twinj/uuid"
)

const legacyTimestampLayout = "2006-01-02 15:04:05"

// TaskRepository caches every owner's tasks and flushes the whole document
// after each mutation. A mutation is only applied to the cache once the
// flush has succeeded.
type TaskRepository struct {
	mtx   sync.RWMutex
	store storage.Store
	tasks map[string][]tasksvc.Task
	newID func() string
	now   func() time.Time
}

var _ tasksvc.TaskRepository = (*TaskRepository)(nil)

type Option func(*TaskRepository)

// WithIDGenerator replaces the UUIDv4 id source.
func WithIDGenerator(f func() string) Option {
	return func(r *TaskRepository) { r.newID = f }
}

func WithClock(f func() time.Time) Option {
	return func(r *TaskRepository) { r.now = f }
}

// record is the persisted task shape, including the fields written by
// versions that had no task id.
type record struct {
	tasksvc.Task
	Timestamp string `json:"timestamp,omitempty"`
}

func NewTaskRepository(s storage.Store, options ...Option) (*TaskRepository, error) {
	r := &TaskRepository{
		store: s,
		newID: func() string { return uuid.NewV4().String() },
		now:   time.Now,
	}
	for _, option := range options {
		option(r)
	}

	doc := map[string][]record{}
	if err := storage.LoadJSON(s, storage.KindTasks, &doc); err != nil {
		return nil, err
	}

	r.tasks = make(map[string][]tasksvc.Task, len(doc))
	for owner, records := range doc {
		tasks := make([]tasksvc.Task, 0, len(records))
		for _, rec := range records {
			t := rec.Task
			t.Owner = owner
			if t.ID == "" || containsID(tasks, t.ID) {
				t.ID = r.freshID(tasks)
			}
			if t.CreatedAt.IsZero() && rec.Timestamp != "" {
				if ts, err := time.ParseInLocation(legacyTimestampLayout, rec.Timestamp, time.Local); err == nil {
					t.CreatedAt = ts
				}
			}
			tasks = append(tasks, t)
		}
		r.tasks[owner] = tasks
	}
	return r, nil
}

func (r *TaskRepository) Create(owner string, f tasksvc.Fields) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	current := r.tasks[owner]
	task := tasksvc.Task{
		ID:          r.freshID(current),
		Owner:       owner,
		Name:        f.Name,
		Priority:    tasksvc.Priority(f.Priority),
		DueDate:     f.DueDate,
		Description: f.Description,
		CreatedAt:   r.now(),
		Completed:   false,
	}

	next := make([]tasksvc.Task, len(current), len(current)+1)
	copy(next, current)
	next = append(next, task)

	if err := r.commit(owner, next); err != nil {
		return tasksvc.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) FindAll(owner string) ([]tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	current := r.tasks[owner]
	tasks := make([]tasksvc.Task, len(current))
	copy(tasks, current)

	return tasks, nil
}

func (r *TaskRepository) Find(owner, taskID string) (tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	i := indexOf(r.tasks[owner], taskID)
	if i < 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return r.tasks[owner][i], nil
}

// Update runs apply on a copy of the task. Identity fields are restored
// afterwards whatever apply did to them.
func (r *TaskRepository) Update(owner, taskID string, apply func(*tasksvc.Task) error) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	current := r.tasks[owner]
	i := indexOf(current, taskID)
	if i < 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	prev := current[i]
	task := prev
	if err := apply(&task); err != nil {
		return tasksvc.Task{}, err
	}
	task.ID, task.Owner, task.CreatedAt = prev.ID, prev.Owner, prev.CreatedAt

	next := make([]tasksvc.Task, len(current))
	copy(next, current)
	next[i] = task

	if err := r.commit(owner, next); err != nil {
		return tasksvc.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) Delete(owner, taskID string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	current := r.tasks[owner]
	i := indexOf(current, taskID)
	if i < 0 {
		return tasksvc.ErrTaskNotFound
	}

	next := make([]tasksvc.Task, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)

	return r.commit(owner, next)
}

// commit flushes the document with owner's tasks replaced by next and swaps
// it into the cache on success. Must be called with mtx held.
func (r *TaskRepository) commit(owner string, next []tasksvc.Task) error {
	doc := make(map[string][]tasksvc.Task, len(r.tasks)+1)
	for k, v := range r.tasks {
		doc[k] = v
	}
	doc[owner] = next

	if err := storage.SaveJSON(r.store, storage.KindTasks, doc); err != nil {
		return err
	}
	r.tasks = doc
	return nil
}

func (r *TaskRepository) freshID(tasks []tasksvc.Task) string {
	for {
		id := r.newID()
		if id != "" && !containsID(tasks, id) {
			return id
		}
	}
}

func indexOf(tasks []tasksvc.Task, taskID string) int {
	for i, t := range tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func containsID(tasks []tasksvc.Task, taskID string) bool {
	return indexOf(tasks, taskID) >= 0
}
