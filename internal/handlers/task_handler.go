package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/models"
	"teamtasks/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  int64               `json:"assignedTo"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     string              `json:"dueDate"` // ISO-8601
}

// updateTaskRequest keeps nil for fields that were not submitted.
type updateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	AssignedTo  *int64               `json:"assignedTo"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     *string              `json:"dueDate"`
}

// Create
// @Summary      Create a task
// @Description  Admin only. Notifies the assignee in-app and by email.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      createTaskRequest  true  "task"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "task.create", "invalid request body")
		return
	}
	due, ok := parseDueDate(req.DueDate)
	if !ok {
		badRequest(c, "task.create", "valid due date is required")
		return
	}

	actor := currentUser(c)
	task, err := h.service.Create(c.Request.Context(), actor, models.TaskInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedTo,
		Priority:     req.Priority,
		DueDate:      due,
	})
	if err != nil {
		writeError(c, "task.create", err)
		return
	}
	log.Printf("[task][create][ok] id=%d by=%d assignee=%d", task.ID, actor.ID, task.AssignedToID)
	c.JSON(http.StatusCreated, gin.H{"message": "task created successfully", "task": task})
}

// GetAll
// @Summary      List all tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status      query  string  false  "To Do | In Progress | Done"
// @Param        assignedTo  query  int     false  "assignee id"
// @Param        priority    query  string  false  "Low | Medium | High"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	filter, err := taskFilterFromQuery(c, true)
	if err != nil {
		writeError(c, "task.list", err)
		return
	}
	tasks, err := h.service.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		writeError(c, "task.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetMine
// @Summary      List tasks assigned to the caller
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status    query  string  false  "To Do | In Progress | Done"
// @Param        priority  query  string  false  "Low | Medium | High"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /tasks/my [get]
func (h *TaskHandler) GetMine(c *gin.Context) {
	filter, err := taskFilterFromQuery(c, false)
	if err != nil {
		writeError(c, "task.mine", err)
		return
	}
	tasks, err := h.service.ListMine(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		writeError(c, "task.mine", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetByID
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "task id"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "task")
	if !ok {
		return
	}
	task, err := h.service.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, "task.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// Update
// @Summary      Update a task
// @Description  Admins may change any field. Assignees may change status only; other fields are ignored.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "task id"
// @Param        task  body      updateTaskRequest  true  "fields to change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "task")
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "task.update", "invalid request body")
		return
	}

	upd := models.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedTo,
		Status:       req.Status,
		Priority:     req.Priority,
	}
	if req.DueDate != nil {
		// an unparseable date reaches validation as the zero time
		due, _ := parseDueDate(*req.DueDate)
		upd.DueDate = &due
	}

	task, err := h.service.Update(c.Request.Context(), currentUser(c), id, upd)
	if err != nil {
		writeError(c, "task.update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task updated successfully", "task": task})
}

// Delete
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "task id"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "task")
	if !ok {
		return
	}
	actor := currentUser(c)
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, "task.delete", err)
		return
	}
	log.Printf("[task][delete][ok] id=%d by=%d", id, actor.ID)
	c.JSON(http.StatusOK, gin.H{"message": "task deleted successfully"})
}

// Report
// @Summary      Export tasks as PDF
// @Tags         Tasks
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        status      query  string  false  "To Do | In Progress | Done"
// @Param        assignedTo  query  int     false  "assignee id"
// @Param        priority    query  string  false  "Low | Medium | High"
// @Success      200  {file}    file
// @Failure      403  {object}  map[string]string
// @Router       /tasks/report [get]
func (h *TaskHandler) Report(c *gin.Context) {
	filter, err := taskFilterFromQuery(c, true)
	if err != nil {
		writeError(c, "task.report", err)
		return
	}
	doc, err := h.service.Report(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		writeError(c, "task.report", err)
		return
	}
	name := fmt.Sprintf("tasks-%s.pdf", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", doc)
}
