package http

import (
	"net/http"

	"estimator/internal/core"
	"estimator/internal/log"
)

func (s *Server) handleListEstimations(w http.ResponseWriter, r *http.Request) {
	q, err := parseEstimationQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.resources.ListEstimations(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page.Items == nil {
		page.Items = []core.Estimation{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetEstimation(w http.ResponseWriter, r *http.Request) {
	e, err := s.resources.GetEstimation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateEstimation(w http.ResponseWriter, r *http.Request) {
	var e core.Estimation
	if !decodeValid(w, r, &e) {
		return
	}
	created, err := s.resources.CreateEstimation(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Estimation created",
		log.FieldEstimationID, created.ID, log.FieldTotal, created.Total())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEstimation(w http.ResponseWriter, r *http.Request) {
	var e core.Estimation
	if !decodeValid(w, r, &e) {
		return
	}
	id := r.PathValue("id")
	e.ID = id
	updated, err := s.resources.UpdateEstimation(r.Context(), id, e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEstimation(w http.ResponseWriter, r *http.Request) {
	if err := s.resources.DeleteEstimation(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary serves the derived totals. Totals are recomputed from the
// stored tree; anything the client sent as a total is never trusted.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	e, err := s.resources.GetEstimation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.Summarize(e))
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var sec core.Section
	if !decodeValid(w, r, &sec) {
		return
	}
	created, err := s.resources.AddSection(r.Context(), r.PathValue("id"), sec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var sec core.Section
	if !decodeValid(w, r, &sec) {
		return
	}
	sid := r.PathValue("sid")
	sec.ID = sid
	updated, err := s.resources.UpdateSection(r.Context(), r.PathValue("id"), sid, sec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := s.resources.DeleteSection(r.Context(), r.PathValue("id"), r.PathValue("sid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var it core.Item
	if !decodeValid(w, r, &it) {
		return
	}
	created, err := s.resources.AddItem(r.Context(), r.PathValue("id"), r.PathValue("sid"), it)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var it core.Item
	if !decodeValid(w, r, &it) {
		return
	}
	iid := r.PathValue("iid")
	it.ID = iid
	updated, err := s.resources.UpdateItem(r.Context(), r.PathValue("id"), r.PathValue("sid"), iid, it)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.resources.DeleteItem(r.Context(), r.PathValue("id"), r.PathValue("sid"), r.PathValue("iid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
