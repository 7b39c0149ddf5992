package httpapi

import (
	"net/http"
	"strings"
	"time"

	"taskdeck.dev/internal/task"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	Category    *string    `json:"category"`
	DueDate     *time.Time `json:"due_date"`
}

type reorderRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type taskListResponse struct {
	Items []task.Task `json:"items"`
}

func (a *API) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTasks(w, r)
	case http.MethodPost:
		a.createTask(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTasksReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.tasks.Reorder(r.Context(), a.identity(r), req.TaskIDs)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Items: items})
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getTask(w, r, id)
	case http.MethodPatch:
		a.updateTask(w, r, id)
	case http.MethodDelete:
		a.deleteTask(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	draft := task.Draft{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	var err error
	if req.Status != "" {
		if draft.Status, err = task.ParseStatus(req.Status); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Priority != "" {
		if draft.Priority, err = task.ParsePriority(req.Priority); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Category != "" {
		if draft.Category, err = task.ParseCategory(req.Category); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	created, err := a.tasks.Create(r.Context(), a.identity(r), draft)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	var (
		filter task.Filter
		err    error
	)
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		if filter.Status, err = task.ParseStatus(v); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("category"); v != "" {
		if filter.Category, err = task.ParseCategory(v); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	items, err := a.tasks.List(r.Context(), a.identity(r), filter)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Items: items})
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request, id string) {
	t, err := a.tasks.Get(r.Context(), a.identity(r), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) updateTask(w http.ResponseWriter, r *http.Request, id string) {
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	upd := task.Update{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status, err := task.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd.Status = &status
	}
	if req.Priority != nil {
		priority, err := task.ParsePriority(*req.Priority)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd.Priority = &priority
	}
	if req.Category != nil {
		category, err := task.ParseCategory(*req.Category)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd.Category = &category
	}

	updated, err := a.tasks.Update(r.Context(), a.identity(r), id, upd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.tasks.Delete(r.Context(), a.identity(r), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
