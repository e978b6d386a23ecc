package http

import (
	"net/http"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request, user core.Identity) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.entries.List(r.Context(), user, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": toEntryList(result.Items),
		"summary": summaryJSON{
			IncomeTotal:  result.Summary.IncomeTotal,
			ExpenseTotal: result.Summary.ExpenseTotal,
			Balance:      result.Summary.Balance,
		},
	})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request, user core.Identity) {
	draft, err := parseDraft(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.entries.Create(r.Context(), user, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "entry created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, user.ID,
		log.FieldEntryID, entry.ID,
		log.FieldEntryType, string(entry.Type),
		log.FieldAmount, entry.Amount)

	writeJSON(w, http.StatusCreated, map[string]any{"item": toEntryJSON(entry)})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request, user core.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.entries.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": toEntryJSON(entry)})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request, user core.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	draft, err := parseDraft(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.entries.Update(r.Context(), user, id, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "entry updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, user.ID,
		log.FieldEntryID, entry.ID)

	writeJSON(w, http.StatusOK, map[string]any{"item": toEntryJSON(entry)})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request, user core.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.entries.Delete(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, user.ID,
		log.FieldEntryID, id)

	writeJSON(w, http.StatusOK, okBody{OK: true})
}
