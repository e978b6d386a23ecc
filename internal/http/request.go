package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"ledgerly/internal/core"
)

// draftPayload is the caller-supplied entry body. Amount is decoded
// loosely because clients send it as either a number or a string.
type draftPayload struct {
	Title      string `json:"title"`
	Amount     any    `json:"amount"`
	Type       string `json:"type"`
	Memo       string `json:"memo"`
	OccurredOn string `json:"occurredOn"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// parseDraft decodes and validates the request body into a Draft.
// Fail-fast: nothing is persisted when any field is malformed.
func parseDraft(r *http.Request) (core.Draft, error) {
	var payload draftPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return core.Draft{}, core.ErrInvalidAmount
	}

	entryType, err := core.ParseEntryType(strings.TrimSpace(payload.Type))
	if err != nil {
		return core.Draft{}, err
	}

	amount, err := core.ParseAmount(stringValue(payload.Amount))
	if err != nil {
		return core.Draft{}, err
	}

	draft := core.Draft{
		Title:  sanitizeInput(payload.Title),
		Amount: amount,
		Type:   entryType,
		Memo:   sanitizeInput(payload.Memo),
	}

	if v := strings.TrimSpace(payload.OccurredOn); v != "" {
		occurredOn, err := core.ParseDate(v)
		if err != nil {
			return core.Draft{}, err
		}
		draft.OccurredOn = occurredOn
	}
	return draft, nil
}

// parseFilter builds the listing filter from query parameters. An
// unrecognized type value simply leaves the type unfiltered.
func parseFilter(r *http.Request) (core.Filter, error) {
	query := r.URL.Query()

	var f core.Filter
	if t, err := core.ParseEntryType(strings.TrimSpace(query.Get("type"))); err == nil {
		f.Type = t
	}

	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		start, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, err
		}
		f.Start = start
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		end, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, err
		}
		f.End = end
	}
	return f, nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrInvalidID
	}
	return id, nil
}

func parseCredentials(r *http.Request) (credentialsPayload, bool) {
	var creds credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return credentialsPayload{}, false
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return credentialsPayload{}, false
	}
	return creds, true
}

// stringValue renders a loosely-typed JSON value as its string form.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// sanitizeInput trims whitespace and strips control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
