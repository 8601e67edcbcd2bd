package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
)

// Handler wires the gauntlet use cases onto HTTP.
type Handler struct {
	service  *app.Service
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewHandler(service *app.Service, auth Authenticator) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/submit", h.handleSubmit)
	mux.HandleFunc("/phase", h.handlePhase)
	mux.HandleFunc("/timer", h.handleTimer)
	mux.HandleFunc("/access", h.handleAccess)
	mux.HandleFunc("/admin/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/admin/submissions", h.handleSubmissions)
	mux.HandleFunc("/admin/phase-stats", h.handlePhaseStats)
	mux.HandleFunc("/ws/leaderboard", h.serveLeaderboardWS)
}

type submitRequest struct {
	Level  string `json:"level"`
	Answer string `json:"answer"`
}

type submitResponse struct {
	Success        bool   `json:"success"`
	Correct        bool   `json:"correct"`
	Message        string `json:"message"`
	Attempts       int    `json:"attempts"`
	NextLevel      string `json:"nextLevel,omitempty"`
	CompletionPage string `json:"completionPage,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrInvalidInput)
		return
	}
	result, err := h.service.Submit(r.Context(), id, req.Level, req.Answer, clientMeta(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Success:        true,
		Correct:        result.Correct,
		Message:        result.Message,
		Attempts:       result.Attempts,
		NextLevel:      result.NextLevel,
		CompletionPage: result.CompletionPage,
	})
}

type phaseRequest struct {
	Phase int    `json:"phase"`
	Input string `json:"input"`
}

type phaseResponse struct {
	Success       bool   `json:"success"`
	PhaseComplete bool   `json:"phaseComplete,omitempty"`
	AllComplete   bool   `json:"allComplete,omitempty"`
	Message       string `json:"message"`
	Phase         int    `json:"phase"`
	Attempts      int    `json:"attempts"`
	Hint          string `json:"hint,omitempty"`
	Fragment      string `json:"fragment,omitempty"`
	NextPhase     int    `json:"nextPhase,omitempty"`
	FinalFlag     string `json:"finalFlag,omitempty"`
	FinalHash     string `json:"finalHash,omitempty"`
	Fragments     string `json:"fragments,omitempty"`
	TimeTaken     int64  `json:"timeTaken,omitempty"`
}

func (h *Handler) handlePhase(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		status, err := h.service.PhaseProgress(id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	case http.MethodPost:
		var req phaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, domain.ErrInvalidInput)
			return
		}
		result, err := h.service.AttemptPhase(r.Context(), id, req.Phase, req.Input, clientMeta(r))
		if err != nil {
			if errors.Is(err, domain.ErrOutOfSequence) {
				// Tell the caller which phase they must finish first.
				status, perr := h.service.PhaseProgress(id)
				current := 0
				if perr == nil {
					current = status.CurrentPhase
				}
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"error":        err.Error(),
					"currentPhase": current,
				})
				return
			}
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, phaseResponse{
			Success:       result.Success,
			PhaseComplete: result.PhaseComplete,
			AllComplete:   result.AllComplete,
			Message:       result.Message,
			Phase:         result.Phase,
			Attempts:      result.Attempts,
			Hint:          result.Hint,
			Fragment:      result.Fragment,
			NextPhase:     result.NextPhase,
			FinalFlag:     result.RewardAnswer,
			FinalHash:     result.CredentialHash,
			Fragments:     result.Credential,
			TimeTaken:     result.TimeTakenMs,
		})
	default:
		http.NotFound(w, r)
	}
}

type timerRequest struct {
	Action string `json:"action"`
}

func (h *Handler) handleTimer(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		snap, err := h.service.Timer(id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodPost:
		var req timerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, domain.ErrInvalidInput)
			return
		}
		snap, err := h.service.TimerAction(id, req.Action)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"isRunning": snap.IsRunning,
			"totalTime": snap.TotalTimeMs,
		})
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	level := r.URL.Query().Get("level")
	accessible, err := h.service.Accessible(id, level)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":      level,
		"accessible": accessible,
	})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, err)
		return domain.Identity{}, false
	}
	if !id.Admin {
		h.writeError(w, domain.ErrForbidden)
		return domain.Identity{}, false
	}
	return id, true
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Leaderboard())
}

func (h *Handler) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	level := r.URL.Query().Get("level")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	submissions, err := h.service.RecentSubmissions(r.Context(), level, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	stats, err := h.service.LevelStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"submissions": submissions,
		"stats":       stats,
	})
}

func (h *Handler) handlePhaseStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.PhaseStats())
}

// writeError maps domain errors onto HTTP statuses. Responses never leak
// reference answers or internal detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if retry, ok := app.IsRateLimited(err); ok {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":      "Too many attempts. Please wait before trying again.",
			"retryAfter": ceilSeconds(retry),
		})
		return
	}
	if remaining, ok := app.IsLockedOut(err); ok {
		secs := ceilSeconds(remaining)
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":            "Too many failed attempts. You have been temporarily locked out.",
			"lockoutRemaining": secs,
			"retryAfter":       secs,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized. Please sign in."})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden. Admin access required."})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidLevel),
		errors.Is(err, domain.ErrOutOfSequence):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrParticipantNotFound), errors.Is(err, domain.ErrChallengeNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "An error occurred while processing your request."})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
