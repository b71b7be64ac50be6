package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/smtguard/smtg/internal/models"
)

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		profile, err := s.store.GetProfile(r.Context())
		if err != nil {
			writeDomainError(w, "Server.profileHandler", err)
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"profile": profile}))
	case http.MethodPut:
		var req models.ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.profileHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		profile, err := s.store.GetProfile(r.Context())
		if err != nil {
			writeDomainError(w, "Server.profileHandler", err)
			return
		}
		profile.Name = req.Name
		profile.GoalMinutes = req.GoalMinutes
		profile.Timezone = req.Timezone
		profile.UpdatedAt = s.now()
		if err := profile.Validate(); err != nil {
			writeDomainError(w, "Server.profileHandler", err)
			return
		}
		if err := s.store.UpdateProfile(r.Context(), profile); err != nil {
			writeDomainError(w, "Server.profileHandler", err)
			return
		}
		slog.Info("Server.profileHandler: profile updated", "goalMinutes", profile.GoalMinutes, "timezone", profile.Timezone)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"profile": profile}))
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPut)
		slog.Warn("Server.profileHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) settingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		settings, err := s.store.GetSettings(r.Context())
		if err != nil {
			writeDomainError(w, "Server.settingsHandler", err)
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"settings": settings}))
	case http.MethodPut:
		var req models.SettingsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.settingsHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		settings := models.Settings{
			StudyMode:         req.StudyMode,
			WorkMode:          req.WorkMode,
			SleepMode:         req.SleepMode,
			NudgeEnabled:      req.NudgeEnabled,
			NudgeThresholdMin: req.NudgeThresholdMin,
			Theme:             req.Theme,
			OnboardingDone:    req.OnboardingDone,
			UpdatedAt:         s.now(),
		}
		if err := settings.Validate(); err != nil {
			writeDomainError(w, "Server.settingsHandler", err)
			return
		}
		if err := s.store.UpdateSettings(r.Context(), settings); err != nil {
			writeDomainError(w, "Server.settingsHandler", err)
			return
		}
		slog.Info("Server.settingsHandler: settings updated", "nudgeEnabled", settings.NudgeEnabled, "thresholdMin", settings.NudgeThresholdMin)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"settings": settings}))
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPut)
		slog.Warn("Server.settingsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) subscriptionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		subscription, err := s.store.GetSubscription(r.Context())
		if err != nil {
			writeDomainError(w, "Server.subscriptionHandler", err)
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"subscription": subscription}))
	case http.MethodPut:
		var req models.SubscriptionUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.subscriptionHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		subscription, err := s.store.GetSubscription(r.Context())
		if err != nil {
			writeDomainError(w, "Server.subscriptionHandler", err)
			return
		}
		subscription.Plan = req.Plan
		subscription.UpdatedAt = s.now()
		if err := subscription.Validate(); err != nil {
			writeDomainError(w, "Server.subscriptionHandler", err)
			return
		}
		if err := s.store.UpdateSubscription(r.Context(), subscription); err != nil {
			writeDomainError(w, "Server.subscriptionHandler", err)
			return
		}
		slog.Info("Server.subscriptionHandler: subscription updated", "plan", subscription.Plan)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"subscription": subscription}))
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPut)
		slog.Warn("Server.subscriptionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
