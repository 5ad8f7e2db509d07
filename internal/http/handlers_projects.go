package http

import (
	"net/http"

	"estimator/internal/core"
	"estimator/internal/log"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.resources.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if !decodeValid(w, r, &p) {
		return
	}
	created, err := s.resources.CreateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Project created", log.FieldProjectID, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if !decodeValid(w, r, &p) {
		return
	}
	id := r.PathValue("id")
	p.ID = id
	updated, err := s.resources.UpdateProject(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.resources.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
