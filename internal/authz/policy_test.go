package authz

import (
	"testing"

	"teamtasks/internal/apperr"
	"teamtasks/internal/models"
)

var (
	admin    = &models.User{ID: 1, Role: models.RoleAdmin}
	assignee = &models.User{ID: 2, Role: models.RoleUser}
	other    = &models.User{ID: 3, Role: models.RoleUser}
	task     = &models.Task{ID: 10, AssignedToID: 2, CreatedByID: 1}
)

func TestAdminOnlyPredicates(t *testing.T) {
	preds := map[string]func(*models.User) error{
		"create": CanCreateTask,
		"list":   CanListAllTasks,
		"delete": CanDeleteTask,
		"users":  CanListUsers,
		"export": CanExportTasks,
	}
	for name, pred := range preds {
		if err := pred(admin); err != nil {
			t.Errorf("%s(admin) = %v, want nil", name, err)
		}
		for _, u := range []*models.User{assignee, other} {
			if err := pred(u); !apperr.Is(err, apperr.KindForbidden) {
				t.Errorf("%s(user %d) = %v, want forbidden", name, u.ID, err)
			}
		}
		if err := pred(nil); !apperr.Is(err, apperr.KindUnauthorized) {
			t.Errorf("%s(nil) = %v, want unauthorized", name, err)
		}
	}
}

func TestCanListOwnTasks(t *testing.T) {
	for _, u := range []*models.User{admin, assignee, other} {
		if err := CanListOwnTasks(u); err != nil {
			t.Fatalf("CanListOwnTasks(%d) = %v", u.ID, err)
		}
	}
}

func TestCanReadTask(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		task *models.Task
		kind apperr.Kind
		ok   bool
	}{
		{"admin", admin, task, 0, true},
		{"assignee", assignee, task, 0, true},
		{"stranger", other, task, apperr.KindForbidden, false},
		{"missing task wins", other, nil, apperr.KindNotFound, false},
		{"missing task admin", admin, nil, apperr.KindNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, pred := range []func(*models.User, *models.Task) error{CanReadTask, CanUpdateTask} {
				err := pred(tc.user, tc.task)
				if tc.ok {
					if err != nil {
						t.Fatalf("err = %v, want nil", err)
					}
					continue
				}
				if !apperr.Is(err, tc.kind) {
					t.Fatalf("err = %v, want %v", err, tc.kind)
				}
			}
		})
	}
}

func TestWritableFields(t *testing.T) {
	title := "x"
	done := models.StatusDone
	var to int64 = 3
	upd := models.TaskUpdate{Title: &title, Status: &done, AssignedToID: &to}

	got := WritableFields(admin, upd)
	if got.Title == nil || got.AssignedToID == nil || got.Status == nil {
		t.Fatalf("admin lost fields: %+v", got)
	}

	got = WritableFields(assignee, upd)
	if got.Title != nil || got.AssignedToID != nil {
		t.Fatalf("user kept restricted fields: %+v", got)
	}
	if got.Status == nil || *got.Status != models.StatusDone {
		t.Fatalf("user lost status: %+v", got)
	}

	if !WritableFields(assignee, models.TaskUpdate{Title: &title}).Empty() {
		t.Fatal("title-only update by user should be empty")
	}
}
