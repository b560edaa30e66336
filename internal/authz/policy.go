// Package authz holds the access policy for tasks and users. Every
// predicate is pure: it sees only the acting identity and, where relevant,
// an already-resolved task.
package authz

import (
	"teamtasks/internal/apperr"
	"teamtasks/internal/models"
)

func isAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

func requireAdmin(u *models.User) error {
	if u == nil {
		return apperr.Unauthorized("token required")
	}
	if !isAdmin(u) {
		return apperr.Forbidden("admin access required")
	}
	return nil
}

func CanCreateTask(u *models.User) error   { return requireAdmin(u) }
func CanListAllTasks(u *models.User) error { return requireAdmin(u) }
func CanDeleteTask(u *models.User) error   { return requireAdmin(u) }
func CanListUsers(u *models.User) error    { return requireAdmin(u) }
func CanExportTasks(u *models.User) error  { return requireAdmin(u) }

// CanListOwnTasks admits any identity; the caller scopes results to it.
func CanListOwnTasks(u *models.User) error {
	if u == nil {
		return apperr.Unauthorized("token required")
	}
	return nil
}

// CanReadTask expects t to be resolved already: a missing task is reported
// as not found before this check runs.
func CanReadTask(u *models.User, t *models.Task) error {
	if u == nil {
		return apperr.Unauthorized("token required")
	}
	if t == nil {
		return apperr.NotFound("task not found")
	}
	if isAdmin(u) || t.AssignedToID == u.ID {
		return nil
	}
	return apperr.Forbidden("access denied")
}

// CanUpdateTask uses the same gate as reads; field restrictions are applied
// by WritableFields.
func CanUpdateTask(u *models.User, t *models.Task) error {
	return CanReadTask(u, t)
}

// WritableFields drops the fields u may not write. Admins keep everything;
// users keep only status. Dropped fields are ignored, not rejected.
func WritableFields(u *models.User, upd models.TaskUpdate) models.TaskUpdate {
	if isAdmin(u) {
		return upd
	}
	return models.TaskUpdate{Status: upd.Status}
}
