package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

type okBody struct {
	OK bool `json:"ok"`
}

// entryJSON is the wire shape of a ledger entry.
type entryJSON struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Amount     int64     `json:"amount"`
	Type       string    `json:"type"`
	Memo       string    `json:"memo"`
	OccurredOn core.Date `json:"occurredOn"`
	CreatedAt  time.Time `json:"createdAt"`
}

type summaryJSON struct {
	IncomeTotal  int64 `json:"incomeTotal"`
	ExpenseTotal int64 `json:"expenseTotal"`
	Balance      int64 `json:"balance"`
}

type userJSON struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		ID:         e.ID,
		Title:      e.Title,
		Amount:     e.Amount,
		Type:       string(e.Type),
		Memo:       e.Memo,
		OccurredOn: e.OccurredOn,
		CreatedAt:  e.CreatedAt,
	}
}

func toEntryList(entries []core.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryJSON(e))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeError maps domain errors onto the wire. Store internals never
// leak: anything unrecognized becomes a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, core.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, core.ErrInvalidID):
		writeJSONError(w, http.StatusBadRequest, "Invalid id")
	case errors.Is(err, core.ErrEmailTaken):
		writeJSONError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}
