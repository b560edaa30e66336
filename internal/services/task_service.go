// internal/services/task_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"teamtasks/internal/apperr"
	"teamtasks/internal/authz"
	"teamtasks/internal/models"
	"teamtasks/internal/repositories"
)

// ReportGenerator renders a task listing into a downloadable document.
type ReportGenerator interface {
	TaskReport(tasks []models.Task, generatedAt time.Time) ([]byte, error)
}

// TaskService defines the task lifecycle. Every method takes the acting
// identity explicitly and authorizes through the authz package.
type TaskService interface {
	Create(ctx context.Context, actor *models.User, in models.TaskInput) (*models.Task, error)
	Get(ctx context.Context, actor *models.User, id int64) (*models.Task, error)
	List(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]models.Task, error)
	ListMine(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, actor *models.User, id int64, upd models.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
	Report(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]byte, error)
}

type taskService struct {
	repo     repositories.TaskRepository
	users    repositories.UserRepository
	notifier Notifier
	reports  ReportGenerator
	now      func() time.Time
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(repo repositories.TaskRepository, users repositories.UserRepository, notifier Notifier, reports ReportGenerator) TaskService {
	return &taskService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		reports:  reports,
		now:      time.Now,
	}
}

var (
	errAssigneeNotFound = apperr.BadRequest("assigned user not found")
	errTaskNotFound     = apperr.NotFound("task not found")
	errNoFields         = apperr.BadRequest("no fields to update")
	errBadStatus        = apperr.BadRequest("status must be To Do, In Progress, or Done")
	errBadPriority      = apperr.BadRequest("priority must be Low, Medium, or High")
)

func validateInput(in *models.TaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return apperr.BadRequest("title is required")
	case in.Description == "":
		return apperr.BadRequest("description is required")
	case in.AssignedToID <= 0:
		return apperr.BadRequest("valid user id is required")
	case in.DueDate.IsZero():
		return apperr.BadRequest("valid due date is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return errBadPriority
	}
	return nil
}

// validateUpdate checks only the fields that survived the write rule.
func validateUpdate(upd *models.TaskUpdate) error {
	if upd.Title != nil {
		v := strings.TrimSpace(*upd.Title)
		if v == "" {
			return apperr.BadRequest("title cannot be empty")
		}
		upd.Title = &v
	}
	if upd.Description != nil {
		v := strings.TrimSpace(*upd.Description)
		if v == "" {
			return apperr.BadRequest("description cannot be empty")
		}
		upd.Description = &v
	}
	if upd.AssignedToID != nil && *upd.AssignedToID <= 0 {
		return apperr.BadRequest("valid user id is required")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return errBadStatus
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return errBadPriority
	}
	if upd.DueDate != nil && upd.DueDate.IsZero() {
		return apperr.BadRequest("valid due date is required")
	}
	return nil
}

func (s *taskService) resolveAssignee(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errAssigneeNotFound
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *taskService) Create(ctx context.Context, actor *models.User, in models.TaskInput) (*models.Task, error) {
	if err := authz.CanCreateTask(actor); err != nil {
		return nil, err
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, in.AssignedToID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		Title:        in.Title,
		Description:  in.Description,
		AssignedToID: assignee.ID,
		CreatedByID:  actor.ID,
		Status:       models.StatusToDo,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Store(ctx, task); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errAssigneeNotFound
		}
		return nil, apperr.Internal(err)
	}
	task.AssignedTo = &models.UserRef{ID: assignee.ID, Name: assignee.Name, Email: assignee.Email}
	task.CreatedBy = &models.UserRef{ID: actor.ID, Name: actor.Name}

	if s.notifier != nil {
		s.notifier.TaskAssigned(ctx, task, assignee)
	}
	return task, nil
}

func (s *taskService) find(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errTaskNotFound
		}
		return nil, apperr.Internal(err)
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, actor *models.User, id int64) (*models.Task, error) {
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanReadTask(actor, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]models.Task, error) {
	if err := authz.CanListAllTasks(actor); err != nil {
		return nil, err
	}
	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return tasks, nil
}

func (s *taskService) ListMine(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]models.Task, error) {
	if err := authz.CanListOwnTasks(actor); err != nil {
		return nil, err
	}
	self := actor.ID
	filter.AssignedTo = &self
	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, actor *models.User, id int64, upd models.TaskUpdate) (*models.Task, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanUpdateTask(actor, current); err != nil {
		return nil, err
	}

	upd = authz.WritableFields(actor, upd)
	if err := validateUpdate(&upd); err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, errNoFields
	}
	if upd.AssignedToID != nil {
		if _, err := s.resolveAssignee(ctx, *upd.AssignedToID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, id, upd, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// the task or the new assignee vanished since the checks above
			if upd.AssignedToID != nil {
				if _, aerr := s.resolveAssignee(ctx, *upd.AssignedToID); aerr != nil {
					return nil, aerr
				}
			}
			return nil, errTaskNotFound
		}
		return nil, apperr.Internal(err)
	}
	return s.find(ctx, id)
}

func (s *taskService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := authz.CanDeleteTask(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errTaskNotFound
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *taskService) Report(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]byte, error) {
	if err := authz.CanExportTasks(actor); err != nil {
		return nil, err
	}
	if s.reports == nil {
		return nil, apperr.Internal(errors.New("report generator not configured"))
	}
	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	doc, err := s.reports.TaskReport(tasks, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return doc, nil
}
