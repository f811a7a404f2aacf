package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/efreitasn/tokenexchange/internal/service"
)

// HistoryHandler serves the durable event journal.
type HistoryHandler struct {
	events *service.Publisher
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(events *service.Publisher) *HistoryHandler {
	return &HistoryHandler{events: events}
}

// journalEntryResponse is one journaled event.
type journalEntryResponse struct {
	Seq   uint64          `json:"seq"`
	Event string          `json:"event"`
	At    string          `json:"timestamp"`
	Data  json.RawMessage `json:"data"`
}

// historyResponse is the JSON response for GET /events.
type historyResponse struct {
	Events  []journalEntryResponse `json:"events"`
	NextSeq uint64                 `json:"next_seq"`
}

// List handles GET /events?after=&limit=. Clients page by passing the
// returned next_seq as after.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if a := r.URL.Query().Get("after"); a != "" {
		var err error
		after, err = strconv.ParseUint(a, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "after must be a non-negative integer")
			return
		}
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil || limit == 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
	}

	entries, err := h.events.History(after, limit)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := historyResponse{Events: make([]journalEntryResponse, len(entries)), NextSeq: after}
	for i, e := range entries {
		resp.Events[i] = journalEntryResponse{
			Seq:   e.Seq,
			Event: e.Type,
			At:    formatTime(e.At),
			Data:  e.Payload,
		}
		resp.NextSeq = e.Seq
	}
	WriteJSON(w, http.StatusOK, resp)
}
