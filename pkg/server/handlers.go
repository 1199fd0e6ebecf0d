package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/odvcencio/focusboard/pkg/query"
	"github.com/odvcencio/focusboard/pkg/session"
	"github.com/odvcencio/focusboard/pkg/state"
	"github.com/odvcencio/focusboard/pkg/telemetry"
)

const maxProcessBodyBytes int64 = 64 << 10

type processRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type processResponse struct {
	Action               string   `json:"action"`
	Message              string   `json:"message"`
	Options              []string `json:"options,omitempty"`
	Kind                 string   `json:"kind,omitempty"`
	RequiresConfirmation bool     `json:"requires_confirmation,omitempty"`
	SessionID            string   `json:"session_id"`
}

// handleProcess runs one input through the pipeline. The response
// echoes the session id so clients can answer clarification questions
// in the same conversation.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.pipe == nil {
		respondError(w, http.StatusServiceUnavailable, fmt.Errorf("pipeline not available"))
		return
	}
	var req processRequest
	if status, err := decodeJSONBody(w, r, &req, maxProcessBodyBytes); err != nil {
		respondError(w, status, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("text required"))
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = session.DefaultSessionID()
	}

	reply, err := s.pipe.Process(r.Context(), req.Text, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, processResponse{
		Action:               string(reply.Outcome),
		Message:              reply.Message,
		Options:              reply.Options,
		Kind:                 string(reply.Kind),
		RequiresConfirmation: reply.RequiresConfirmation,
		SessionID:            sessionID,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w)
	if !ok {
		return
	}
	respondJSON(w, map[string]any{"state": doc})
}

func (s *Server) handleScheduleToday(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w)
	if !ok {
		return
	}
	now := s.now()
	classes := query.TodayClasses(doc, now)
	if classes == nil {
		classes = []state.Task{}
	}
	tasks := query.TodayPersonalTasks(doc, now)
	if tasks == nil {
		tasks = []state.Task{}
	}
	respondJSON(w, map[string]any{
		"date":    now.Format("2006-01-02"),
		"day":     query.DayCode(now),
		"classes": classes,
		"tasks":   tasks,
	})
}

func (s *Server) handleScheduleNow(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w)
	if !ok {
		return
	}
	now := s.now()
	payload := map[string]any{
		"time":       now.Format("15:04"),
		"in_session": false,
	}
	if current, ok := query.CurrentClass(doc, now); ok {
		payload["in_session"] = true
		payload["class"] = current
	}
	respondJSON(w, payload)
}

func (s *Server) handleScheduleWeek(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w)
	if !ok {
		return
	}
	week := query.WeeklyClasses(doc)
	for day, classes := range week {
		if classes == nil {
			week[day] = []state.Task{}
		}
	}
	respondJSON(w, map[string]any{
		"order": query.WeekOrder,
		"week":  week,
	})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 5)
	report, err := s.book.TopPatterns(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	counts, err := s.book.IntentCounts()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, map[string]any{
		"patterns": report,
		"intents":  counts,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	events := s.hub.Recent(limit)
	if events == nil {
		events = []telemetry.Event{}
	}
	respondJSON(w, map[string]any{"events": events})
}

// document fetches the current state snapshot, writing the error
// response itself when the store is missing or unloaded.
func (s *Server) document(w http.ResponseWriter) (state.Document, bool) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, fmt.Errorf("state not available"))
		return state.Document{}, false
	}
	doc, err := s.store.Document()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return state.Document{}, false
	}
	return doc, true
}
