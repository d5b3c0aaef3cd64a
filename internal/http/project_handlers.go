package httpx

import (
	"net/http"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/service/project"
)

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		projects, err := r.projects.List(req.Context(), userID)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, projects, "")
	case http.MethodPost:
		var payload project.CreateInput
		if !r.decode(w, req, &payload) {
			return
		}
		created, err := r.projects.Create(req.Context(), userID, payload)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusCreated, created, "Project created successfully")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectSubroutes(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/api/projects/")
	switch {
	case len(parts) == 1:
		r.handleProject(w, req, userID, parts[0])
	case len(parts) == 2 && parts[1] == "members":
		r.handleMembers(w, req, userID, parts[0])
	case len(parts) == 3 && parts[1] == "members":
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		if err := r.projects.RemoveMember(req.Context(), userID, parts[0], parts[2]); err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, nil, "Member removed successfully")
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProject(w http.ResponseWriter, req *http.Request, userID, projectID string) {
	switch req.Method {
	case http.MethodGet:
		found, err := r.projects.Get(req.Context(), userID, projectID)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, found, "")
	case http.MethodPut, http.MethodPatch:
		var patch domain.ProjectPatch
		if !r.decode(w, req, &patch) {
			return
		}
		updated, err := r.projects.Update(req.Context(), userID, projectID, patch)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, updated, "Project updated successfully")
	case http.MethodDelete:
		if err := r.projects.Delete(req.Context(), userID, projectID); err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, nil, "Project deleted successfully")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleMembers(w http.ResponseWriter, req *http.Request, userID, projectID string) {
	switch req.Method {
	case http.MethodGet:
		members, err := r.projects.ListMembers(req.Context(), userID, projectID)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, members, "")
	case http.MethodPost:
		var payload project.MemberInput
		if !r.decode(w, req, &payload) {
			return
		}
		member, err := r.projects.AddMember(req.Context(), userID, projectID, payload)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusCreated, member, "Member added successfully")
	default:
		r.methodNotAllowed(w)
	}
}
