package httpx

import (
	"net/http"
	"strings"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/service/task"
)

type tagsPayload struct {
	Tags []string `json:"tags"`
}

func (r *Router) handleTasks(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		query := req.URL.Query()
		filter := domain.TaskFilter{
			ProjectID:  strings.TrimSpace(query.Get("projectId")),
			Status:     domain.TaskStatus(strings.TrimSpace(query.Get("status"))),
			Priority:   domain.TaskPriority(strings.TrimSpace(query.Get("priority"))),
			AssigneeID: strings.TrimSpace(query.Get("assigneeId")),
		}
		tasks, err := r.tasks.List(req.Context(), userID, filter)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, tasks, "")
	case http.MethodPost:
		var payload task.CreateInput
		if !r.decode(w, req, &payload) {
			return
		}
		created, err := r.tasks.Create(req.Context(), userID, payload)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusCreated, created, "Task created successfully")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTaskSubroutes(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/api/tasks/")
	switch {
	case len(parts) == 1:
		r.handleTask(w, req, userID, parts[0])
	case len(parts) == 2 && parts[1] == "tags":
		r.handleTaskTags(w, req, userID, parts[0])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleTask(w http.ResponseWriter, req *http.Request, userID, taskID string) {
	switch req.Method {
	case http.MethodGet:
		found, err := r.tasks.Get(req.Context(), userID, taskID)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, found, "")
	case http.MethodPut, http.MethodPatch:
		var patch domain.TaskPatch
		if !r.decode(w, req, &patch) {
			return
		}
		updated, err := r.tasks.Update(req.Context(), userID, taskID, patch)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, updated, "Task updated successfully")
	case http.MethodDelete:
		if err := r.tasks.Delete(req.Context(), userID, taskID); err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, nil, "Task deleted successfully")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTaskTags(w http.ResponseWriter, req *http.Request, userID, taskID string) {
	if req.Method != http.MethodPost && req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	var payload tagsPayload
	if !r.decode(w, req, &payload) {
		return
	}
	var (
		updated *domain.Task
		err     error
	)
	if req.Method == http.MethodPost {
		updated, err = r.tasks.AddTags(req.Context(), userID, taskID, payload.Tags)
	} else {
		updated, err = r.tasks.RemoveTags(req.Context(), userID, taskID, payload.Tags)
	}
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, updated, "Task updated successfully")
}
