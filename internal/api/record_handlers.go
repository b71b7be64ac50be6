package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/smtguard/smtg/internal/models"
)

func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	slog.Debug("Server.sessionsHandler: processing session record request")

	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sessionsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	session := req.Session(s.now())
	if err := session.Validate(); err != nil {
		writeDomainError(w, "Server.sessionsHandler", err)
		return
	}
	if err := s.store.AppendSession(r.Context(), session); err != nil {
		writeDomainError(w, "Server.sessionsHandler", err)
		return
	}

	slog.Info("Server.sessionsHandler: session recorded", "app", session.AppName, "type", session.SessionType, "durationMin", session.DurationMin)
	writeJSONResponse(w, http.StatusCreated, models.RecordedWithMessage("Session recorded"))
}

func (s *Server) focusSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	slog.Debug("Server.focusSessionsHandler: processing focus session record request")

	var req models.FocusSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.focusSessionsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	focus := req.FocusSession(s.now())
	if err := focus.Validate(); err != nil {
		writeDomainError(w, "Server.focusSessionsHandler", err)
		return
	}
	if err := s.store.AppendFocusSession(r.Context(), focus); err != nil {
		writeDomainError(w, "Server.focusSessionsHandler", err)
		return
	}

	slog.Info("Server.focusSessionsHandler: focus session recorded", "plannedMin", focus.PlannedMin, "completedMin", focus.CompletedMin)
	writeJSONResponse(w, http.StatusCreated, models.RecordedWithMessage("Focus session recorded"))
}

func (s *Server) nudgeTriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	slog.Debug("Server.nudgeTriggerHandler: processing manual trigger request")

	nudge, err := s.flow.TriggerManual(r.Context(), s.userID, s.now())
	if err != nil {
		writeDomainError(w, "Server.nudgeTriggerHandler", err)
		return
	}
	if nudge == nil {
		// A pending nudge suppresses new triggers rather than erroring.
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("A nudge is already pending", nil))
		return
	}
	slog.Info("Server.nudgeTriggerHandler: nudge triggered", "nudgeID", nudge.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]interface{}{"nudge": nudge}))
}

func (s *Server) nudgeRespondHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	slog.Debug("Server.nudgeRespondHandler: processing nudge response")

	var req models.NudgeRespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.nudgeRespondHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.NudgeID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: nudge_id"))
		return
	}

	nudge, err := s.flow.Respond(r.Context(), s.userID, req.NudgeID, req.Response, s.now())
	if err != nil {
		writeDomainError(w, "Server.nudgeRespondHandler", err)
		return
	}
	slog.Info("Server.nudgeRespondHandler: nudge resolved", "nudgeID", nudge.ID, "response", nudge.Response)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"nudge": nudge}))
}

func (s *Server) nudgePendingHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	pending := s.flow.Pending(s.userID)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"state":   s.flow.State(s.userID),
		"pending": pending,
	}))
}

func (s *Server) focusStartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	slog.Debug("Server.focusStartHandler: processing focus start request")

	var req models.FocusStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.focusStartHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	session, err := s.flow.StartFocus(r.Context(), s.userID, req.NudgeID, req.PlannedMin, s.now())
	if err != nil {
		writeDomainError(w, "Server.focusStartHandler", err)
		return
	}
	slog.Info("Server.focusStartHandler: focus session started", "sessionID", session.ID, "plannedMin", session.PlannedMin)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]interface{}{"focus_session": session}))
}

func (s *Server) focusEndHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	slog.Debug("Server.focusEndHandler: processing focus end request")

	var req models.FocusEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.focusEndHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: session_id"))
		return
	}

	focus, companion, err := s.flow.EndFocus(r.Context(), s.userID, req.SessionID, s.now())
	if err != nil {
		writeDomainError(w, "Server.focusEndHandler", err)
		return
	}
	slog.Info("Server.focusEndHandler: focus session ended", "sessionID", focus.ID, "completedMin", focus.CompletedMin)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"focus_session": focus,
		"session":       companion,
	}))
}

func (s *Server) dataHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	slog.Debug("Server.dataHandler: processing data deletion request")

	if err := s.store.DeleteAllRecords(r.Context()); err != nil {
		writeDomainError(w, "Server.dataHandler", err)
		return
	}
	slog.Info("Server.dataHandler: all activity records deleted")
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("All activity records deleted", nil))
}
