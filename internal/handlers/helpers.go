package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/apperr"
	"teamtasks/internal/middleware"
	"teamtasks/internal/models"
)

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// writeError renders err as {"message": ...}. Internal faults are logged
// with the request id and never leak detail.
func writeError(c *gin.Context, op string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("[http][err] op=%s rid=%s: %v", op, middleware.RequestIDFrom(c), err)
	} else {
		log.Printf("[http][%s] op=%s rid=%s: %s", kind, op, middleware.RequestIDFrom(c), apperr.PublicMessage(err))
	}
	c.JSON(kind.HTTPStatus(), gin.H{"message": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, op, msg string) {
	writeError(c, op, apperr.BadRequest(msg))
}

// pathID parses :id. A value that cannot be an id cannot name a record,
// so it is reported as not found.
func pathID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": what + " not found"})
		return 0, false
	}
	return id, true
}

// Due dates are ISO-8601. Zone-less forms, as sent by datetime-local
// inputs, are read as UTC. Fractional seconds are accepted after seconds.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// taskFilterFromQuery reads ?status&assignedTo&priority. Empty values are
// unconstrained.
func taskFilterFromQuery(c *gin.Context, allowAssignee bool) (models.TaskFilter, error) {
	var f models.TaskFilter
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		s := models.TaskStatus(v)
		f.Status = &s
	}
	if v := strings.TrimSpace(c.Query("priority")); v != "" {
		p := models.TaskPriority(v)
		f.Priority = &p
	}
	if allowAssignee {
		if v := strings.TrimSpace(c.Query("assignedTo")); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return f, apperr.BadRequest("invalid assignedTo")
			}
			f.AssignedTo = &id
		}
	}
	return f, nil
}
