package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"teamtasks/internal/models"
)

// Memory keeps users and tasks in process. It backs the "memory" database
// driver and doubles as the store in tests.
type Memory struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	tasks    map[int64]*models.Task
	links    map[string]*TelegramLink
	nextUser int64
	nextTask int64
	nextLink int64
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[int64]*models.User),
		tasks: make(map[int64]*models.Task),
		links: make(map[string]*TelegramLink),
	}
}

func (m *Memory) Users() UserRepository                 { return memoryUsers{m} }
func (m *Memory) Tasks() TaskRepository                 { return memoryTasks{m} }
func (m *Memory) TelegramLinks() TelegramLinkRepository { return memoryLinks{m} }

type memoryUsers struct{ m *Memory }

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Notifications = append(models.Notifications{}, u.Notifications...)
	return &cp
}

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	r.m.nextUser++
	user.ID = r.m.nextUser
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.m.users[user.ID] = cloneUser(user)
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) ListByRole(_ context.Context, role models.Role) ([]models.Assignable, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := []models.Assignable{}
	for _, u := range r.m.users {
		if u.Role == role {
			out = append(out, models.Assignable{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memoryUsers) mutate(id int64, fn func(u *models.User) error) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return ErrNotFound
	}
	return fn(u)
}

func (r memoryUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return r.mutate(id, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (r memoryUsers) SetTelegramChat(_ context.Context, id int64, chatID int64) error {
	return r.mutate(id, func(u *models.User) error {
		u.TelegramChatID = chatID
		return nil
	})
}

func (r memoryUsers) AppendNotification(_ context.Context, userID int64, n models.Notification) (int, error) {
	idx := 0
	err := r.mutate(userID, func(u *models.User) error {
		u.Notifications = append(u.Notifications, n)
		idx = len(u.Notifications) - 1
		return nil
	})
	return idx, err
}

func (r memoryUsers) ListNotifications(_ context.Context, userID int64) (models.Notifications, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append(models.Notifications{}, u.Notifications...), nil
}

func (r memoryUsers) MarkNotificationRead(_ context.Context, userID int64, index int) error {
	return r.mutate(userID, func(u *models.User) error {
		if index < 0 || index >= len(u.Notifications) {
			return ErrNotFound
		}
		u.Notifications[index].Read = true
		return nil
	})
}

type memoryTasks struct{ m *Memory }

// expand must be called with the lock held.
func (r memoryTasks) expand(t *models.Task) models.Task {
	cp := *t
	if a, ok := r.m.users[t.AssignedToID]; ok {
		cp.AssignedTo = &models.UserRef{ID: a.ID, Name: a.Name, Email: a.Email}
	}
	if c, ok := r.m.users[t.CreatedByID]; ok {
		cp.CreatedBy = &models.UserRef{ID: c.ID, Name: c.Name}
	}
	return cp
}

func (r memoryTasks) Store(_ context.Context, task *models.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[task.AssignedToID]; !ok {
		return ErrNotFound
	}
	r.m.nextTask++
	task.ID = r.m.nextTask
	cp := *task
	cp.AssignedTo, cp.CreatedBy = nil, nil
	r.m.tasks[task.ID] = &cp
	return nil
}

func (r memoryTasks) FindByID(_ context.Context, id int64) (*models.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	t, ok := r.m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := r.expand(t)
	return &out, nil
}

func matchesFilter(t *models.Task, f models.TaskFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AssignedTo != nil && t.AssignedToID != *f.AssignedTo {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return true
}

func (r memoryTasks) FindAll(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := []models.Task{}
	for _, t := range r.m.tasks {
		if matchesFilter(t, filter) {
			out = append(out, r.expand(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r memoryTasks) Update(_ context.Context, id int64, upd models.TaskUpdate, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if upd.AssignedToID != nil {
		if _, ok := r.m.users[*upd.AssignedToID]; !ok {
			return ErrNotFound
		}
	}
	upd.Apply(t)
	t.UpdatedAt = at
	return nil
}

func (r memoryTasks) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.tasks, id)
	return nil
}

type memoryLinks struct{ m *Memory }

func (r memoryLinks) Create(_ context.Context, userID int64, code string, expiresAt time.Time) (*TelegramLink, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[userID]; !ok {
		return nil, ErrNotFound
	}
	r.m.nextLink++
	l := &TelegramLink{ID: r.m.nextLink, UserID: userID, Code: code, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	r.m.links[code] = l
	cp := *l
	return &cp, nil
}

func (r memoryLinks) Consume(_ context.Context, code string, now time.Time) (*TelegramLink, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.links[code]
	if !ok || l.Used || now.After(l.ExpiresAt) {
		return nil, ErrNotFound
	}
	l.Used = true
	cp := *l
	return &cp, nil
}
