package handlers

import (
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/middleware"
	"taskflow/internal/models/task"
	"taskflow/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	responder
	tasks TaskService
	now   func() time.Time
}

func NewTaskHandler(tasks TaskService, log *zap.Logger, development bool) *TaskHandler {
	return &TaskHandler{
		responder: responder{log: log, development: development},
		tasks:     tasks,
		now:       time.Now,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.HealthCheck(r.Context()); err != nil {
		h.log.Error("HTTP: health check failed", zap.Error(err))
		responseWithJSON(w, http.StatusServiceUnavailable, Envelope{
			Success: false,
			Message: "TaskFlow API is unhealthy",
			Data:    map[string]string{"status": "unavailable"},
		})
		return
	}
	respondSuccess(w, http.StatusOK, "TaskFlow API is running", map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC(),
	})
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	input, fieldErrs := parseListQuery(r)
	if len(fieldErrs) > 0 {
		h.badRequest(w, r, fieldErrs...)
		return
	}

	page, err := h.tasks.ListTasks(r.Context(), u.ID, input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondPage(w, "Tasks retrieved successfully",
		dto.FromTaskList(page.Tasks, h.now()),
		NewPagination(page.Page, page.Limit, page.Total))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var request dto.CreateTaskRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	created, err := h.tasks.CreateTask(r.Context(), u.ID, service.CreateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		DueDate:     request.DueDate.Value,
		Priority:    request.Priority,
		Category:    request.Category,
		Completed:   request.Completed,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.log.Info("HTTP: task created",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("task_id", created.ID.String()))
	respondSuccess(w, http.StatusCreated, "Task created successfully", dto.FromTask(created, h.now()))
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.userAndTaskID(w, r)
	if !ok {
		return
	}
	found, err := h.tasks.GetTask(r.Context(), u, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Task retrieved successfully", dto.FromTask(found, h.now()))
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.userAndTaskID(w, r)
	if !ok {
		return
	}
	var request dto.UpdateTaskRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.tasks.UpdateTask(r.Context(), u, id, request.Options()...)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Task updated successfully", dto.FromTask(updated, h.now()))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.userAndTaskID(w, r)
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(r.Context(), u, id); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Task deleted successfully", nil)
}

func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.userAndTaskID(w, r)
	if !ok {
		return
	}
	toggled, err := h.tasks.ToggleTask(r.Context(), u, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	message := "Task marked as pending"
	if toggled.Completed {
		message = "Task marked as completed"
	}
	respondSuccess(w, http.StatusOK, message, dto.FromTask(toggled, h.now()))
}

func (h *TaskHandler) DeleteCompleted(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	deleted, err := h.tasks.DeleteCompletedTasks(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, strconv.FormatInt(deleted, 10)+" completed tasks deleted", dto.DeletedCountResponse{Deleted: deleted})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	stats, err := h.tasks.GetTaskStats(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Task statistics retrieved successfully", stats)
}

func (h *TaskHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.FindOverdueTasks(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Overdue tasks retrieved successfully", dto.FromTaskList(tasks, h.now()))
}

func (h *TaskHandler) DueSoon(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	days := service.DefaultDueSoon
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(w, r, service.FieldError{Field: "days", Message: "days must be an integer"})
			return
		}
		days = n
	}

	tasks, err := h.tasks.FindDueSoonTasks(r.Context(), u.ID, days)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Tasks due soon retrieved successfully", dto.FromTaskList(tasks, h.now()))
}

func (h *TaskHandler) Categories(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	categories, err := h.tasks.ListCategories(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Categories retrieved successfully", categories)
}

func (h *TaskHandler) SuggestDueDate(w http.ResponseWriter, r *http.Request) {
	priority := task.Priority(r.URL.Query().Get("priority"))
	due, err := h.tasks.SuggestDueDate(priority)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if priority == "" {
		priority = task.PriorityMedium
	}
	respondSuccess(w, http.StatusOK, "Suggested due date calculated", dto.SuggestedDueDateResponse{Priority: priority, DueDate: due})
}

func (h *TaskHandler) userAndTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, r, service.FieldError{Field: "id", Message: "Invalid task ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return u.ID, id, true
}

func parseListQuery(r *http.Request) (service.ListTasksInput, []service.FieldError) {
	query := r.URL.Query()
	var errs []service.FieldError

	input := service.ListTasksInput{
		Priority: task.Priority(query.Get("priority")),
		Category: query.Get("category"),
		Search:   query.Get("search"),
		Status:   task.Status(query.Get("status")),
	}

	page, fe := queryInt(r, "page", service.DefaultPage)
	if fe != nil {
		errs = append(errs, *fe)
	}
	limit, fe := queryInt(r, "limit", service.DefaultLimit)
	if fe != nil {
		errs = append(errs, *fe)
	}
	input.Page, input.Limit = service.NormalizePage(page, limit)

	if raw := query.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, service.FieldError{Field: "completed", Message: "completed must be true or false"})
		} else {
			input.Completed = &completed
		}
	}

	sort, ok := task.ParseSort(query.Get("sort"))
	if !ok {
		errs = append(errs, service.FieldError{Field: "sort", Message: "sort must be one of createdAt, dueDate, priority, title"})
	}
	input.Sort = sort

	return input, errs
}
