package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamtasks/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	// Update writes only the submitted fields of upd.
	Update(ctx context.Context, id int64, upd models.TaskUpdate, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskSelect = `
SELECT t.id, t.title, t.description, t.assigned_to, t.created_by,
       t.status, t.priority, t.due_date, t.created_at, t.updated_at,
       a.name, a.email, c.name
FROM tasks t
JOIN users a ON a.id = t.assigned_to
JOIN users c ON c.id = t.created_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{AssignedTo: &models.UserRef{}, CreatedBy: &models.UserRef{}}
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.AssignedToID, &t.CreatedByID,
		&t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
		&t.AssignedTo.Name, &t.AssignedTo.Email, &t.CreatedBy.Name,
	)
	if err != nil {
		return nil, err
	}
	t.AssignedTo.ID = t.AssignedToID
	t.CreatedBy.ID = t.CreatedByID
	return t, nil
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			title, description, assigned_to, created_by,
			status, priority, due_date, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		task.Title, task.Description, task.AssignedToID, task.CreatedByID,
		task.Status, task.Priority, task.DueDate, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// taskFilterClause compiles a filter into a WHERE clause with positional args.
func taskFilterClause(filter models.TaskFilter) (string, []any) {
	conditions := []string{}
	args := []any{}
	argID := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("t.assigned_to = $%d", argID))
		args = append(args, *filter.AssignedTo)
		argID++
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("t.priority = $%d", argID))
		args = append(args, *filter.Priority)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	where, args := taskFilterClause(filter)
	query := taskSelect + where + " ORDER BY t.created_at DESC, t.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// taskUpdateClause compiles the submitted fields into a SET list. The id
// placeholder is always last.
func taskUpdateClause(upd models.TaskUpdate, at time.Time) (string, []any) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.AssignedToID != nil {
		add("assigned_to", *upd.AssignedToID)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Priority != nil {
		add("priority", *upd.Priority)
	}
	if upd.DueDate != nil {
		add("due_date", *upd.DueDate)
	}
	add("updated_at", at)
	return strings.Join(sets, ", "), args
}

func (r *taskRepository) Update(ctx context.Context, id int64, upd models.TaskUpdate, at time.Time) error {
	set, args := taskUpdateClause(upd, at)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id=$%d", set, len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	return expectAffected(res)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
