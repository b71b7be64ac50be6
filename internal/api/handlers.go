// Package api provides HTTP handlers for SMTG endpoints.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/smtguard/smtg/internal/analyzer"
	"github.com/smtguard/smtg/internal/insights"
	"github.com/smtguard/smtg/internal/models"
	"github.com/smtguard/smtg/internal/store"
)

// sessionHistoryDays bounds the session history feeding the dashboard streak.
const sessionHistoryDays = 30

// Integration support matrix reported by /api/integrations. Behavior is
// inferred from OS usage metadata, never from platform content APIs.
type integrationInfo struct {
	Supported string `json:"supported"`
	Method    string `json:"method"`
	Note      string `json:"note"`
}

var integrations = map[string]integrationInfo{
	"instagram": {
		Supported: "partial",
		Method:    "OS usage stats + foreground app detection",
		Note:      "No direct content/feed API is used; behavior is inferred from app usage metadata.",
	},
	"facebook": {
		Supported: "partial",
		Method:    "OS usage stats + foreground app detection",
		Note:      "Direct timeline-content analytics are not available through this MVP.",
	},
	"youtube_shorts": {
		Supported: "partial",
		Method:    "OS usage stats + category/session heuristics",
		Note:      "Shorts-specific segmentation is heuristic-based unless native accessibility hooks are approved.",
	},
	"tiktok": {
		Supported: "partial",
		Method:    "OS usage stats + session pattern heuristics",
		Note:      "No API-level content inspection; app-level time monitoring only.",
	},
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"ok":        true,
		"timestamp": s.now().UTC().Truncate(time.Second).Format(time.RFC3339),
	}))
}

func (s *Server) integrationsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"integrations": integrations,
	}))
}

func (s *Server) behaviorHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	slog.Debug("Server.behaviorHandler: processing analyze request")

	ctx := r.Context()
	goal, err := s.goalContext(ctx)
	if err != nil {
		writeDomainError(w, "Server.behaviorHandler", err)
		return
	}

	now := s.now()
	sessions, err := s.store.ListSessions(ctx, store.DayWindow(now, goal.Loc()))
	if err != nil {
		writeDomainError(w, "Server.behaviorHandler", err)
		return
	}
	// Nudges feed the accept rate over the same window as the sessions, so
	// yesterday's dismissals never color a clean day.
	nudges, err := s.store.ListNudges(ctx, store.DayWindow(now, goal.Loc()))
	if err != nil {
		writeDomainError(w, "Server.behaviorHandler", err)
		return
	}

	analysis, err := analyzer.Analyze(sessions, nudges, goal, s.weights)
	if err != nil {
		writeDomainError(w, "Server.behaviorHandler", err)
		return
	}
	slog.Info("Server.behaviorHandler: analysis complete", "riskLevel", analysis.RiskLevel, "riskScore", analysis.RiskScore)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"behavior": analysis}))
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	slog.Debug("Server.dashboardHandler: processing dashboard request")

	ctx := r.Context()
	goal, err := s.goalContext(ctx)
	if err != nil {
		writeDomainError(w, "Server.dashboardHandler", err)
		return
	}

	now := s.now()
	today, err := s.store.ListSessions(ctx, store.DayWindow(now, goal.Loc()))
	if err != nil {
		writeDomainError(w, "Server.dashboardHandler", err)
		return
	}
	historyWindow := store.TrailingWindow(now, sessionHistoryDays, goal.Loc())
	sessions, err := s.store.ListSessions(ctx, historyWindow)
	if err != nil {
		writeDomainError(w, "Server.dashboardHandler", err)
		return
	}
	focusSessions, err := s.store.ListFocusSessions(ctx, historyWindow)
	if err != nil {
		writeDomainError(w, "Server.dashboardHandler", err)
		return
	}

	dashboard, err := insights.BuildDashboard(today, insights.History{
		Sessions:      sessions,
		FocusSessions: focusSessions,
	}, goal, now)
	if err != nil {
		writeDomainError(w, "Server.dashboardHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"dashboard": dashboard}))
}

func (s *Server) insightsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	slog.Debug("Server.insightsHandler: processing insights request")

	ctx := r.Context()
	goal, err := s.goalContext(ctx)
	if err != nil {
		writeDomainError(w, "Server.insightsHandler", err)
		return
	}

	now := s.now()
	// The weekly view needs a baseline window behind it for time-saved.
	sessions, err := s.store.ListSessions(ctx, store.TrailingWindow(now, insights.WeekDays+insights.BaselineDays, goal.Loc()))
	if err != nil {
		writeDomainError(w, "Server.insightsHandler", err)
		return
	}
	nudges, err := s.store.ListNudges(ctx, store.TrailingWindow(now, insights.WeekDays, goal.Loc()))
	if err != nil {
		writeDomainError(w, "Server.insightsHandler", err)
		return
	}

	result, err := insights.BuildInsights(sessions, nudges, goal, now)
	if err != nil {
		writeDomainError(w, "Server.insightsHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"insights": result}))
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	slog.Debug("Server.exportHandler: processing export request")

	ctx := r.Context()
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		writeDomainError(w, "Server.exportHandler", err)
		return
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		writeDomainError(w, "Server.exportHandler", err)
		return
	}
	subscription, err := s.store.GetSubscription(ctx)
	if err != nil {
		writeDomainError(w, "Server.exportHandler", err)
		return
	}

	all := store.Window{} // open bounds cover the full history
	sessions, err := s.store.ListSessions(ctx, all)
	if err != nil {
		writeDomainError(w, "Server.exportHandler", err)
		return
	}
	focusSessions, err := s.store.ListFocusSessions(ctx, all)
	if err != nil {
		writeDomainError(w, "Server.exportHandler", err)
		return
	}
	nudges, err := s.store.ListNudges(ctx, all)
	if err != nil {
		writeDomainError(w, "Server.exportHandler", err)
		return
	}

	export := models.Export{
		Profile:       profile,
		Settings:      settings,
		Subscription:  subscription,
		Sessions:      sessions,
		FocusSessions: focusSessions,
		Nudges:        nudges,
	}
	slog.Info("Server.exportHandler: export assembled", "sessions", len(sessions), "focusSessions", len(focusSessions), "nudges", len(nudges))
	writeJSONResponse(w, http.StatusOK, models.Success(export))
}
