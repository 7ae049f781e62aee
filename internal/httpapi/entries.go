package httpapi

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/journal"
)

func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	in := entryInputFrom(r.Context())
	saved, err := s.journal.CreateEntry(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toEntryResponse(saved))
}

// listEntries accepts optional status, from, and to query params. Dates are
// YYYY-MM-DD.
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f journal.EntryFilter
	if raw := q.Get("status"); raw != "" {
		status := ledger.EntryStatus(raw)
		if !status.Valid() {
			badRequest(w, "invalid status")
			return
		}
		f.Status = status
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(w, "invalid from date")
			return
		}
		f.DateFrom = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(w, "invalid to date")
			return
		}
		f.DateTo = &t
	}

	entries, err := s.journal.ListEntries(r.Context(), f)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	e, err := s.journal.Entry(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e))
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	in := entryInputFrom(r.Context())
	saved, err := s.journal.UpdateDraftEntry(r.Context(), id, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(saved))
}

func (s *Server) transitionEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		badRequest(w, "invalid status")
		return
	}
	e, err := s.journal.Transition(r.Context(), id, req.Status, req.Actor)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e))
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	if err := s.journal.DeleteEntry(r.Context(), id, r.URL.Query().Get("actor")); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
