package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fitcoach/internal/apperr"
	"fitcoach/internal/auth"
	"fitcoach/internal/fitness"
	"fitcoach/internal/gpt"
	"fitcoach/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Handler adapts HTTP requests to the fitness service.
type Handler struct {
	service  *fitness.Service
	webhooks WebhookParser
	logger   *logger.Logger
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	r.HandleFunc("/user/profile", h.getProfile).Methods(http.MethodGet)
	r.HandleFunc("/user/profile", h.updateProfile).Methods(http.MethodPut)
	r.HandleFunc("/user/telegram", h.linkTelegram).Methods(http.MethodPut)
	r.HandleFunc("/user/calculate-calories", h.calculateCalories).Methods(http.MethodPost)
	r.HandleFunc("/user/progress", h.listProgress).Methods(http.MethodGet)
	r.HandleFunc("/user/progress", h.logProgress).Methods(http.MethodPost)

	r.HandleFunc("/workout/generate", h.generateWorkout).Methods(http.MethodPost)
	r.HandleFunc("/workout", h.listWorkouts).Methods(http.MethodGet)
	r.HandleFunc("/workout/{id}", h.getWorkout).Methods(http.MethodGet)
	r.HandleFunc("/workout/{id}", h.deleteWorkout).Methods(http.MethodDelete)

	r.HandleFunc("/meal/generate", h.generateMeal).Methods(http.MethodPost)
	r.HandleFunc("/meal", h.listMeals).Methods(http.MethodGet)
	r.HandleFunc("/meal/{id}", h.getMeal).Methods(http.MethodGet)
	r.HandleFunc("/meal/{id}", h.deleteMeal).Methods(http.MethodDelete)

	r.HandleFunc("/chat", h.chat).Methods(http.MethodPost)

	r.HandleFunc("/billing/checkout", h.checkout).Methods(http.MethodPost)
	r.HandleFunc("/webhook/stripe", h.stripeWebhook).Methods(http.MethodPost)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req fitness.RegisterInput
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.User(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req fitness.ProfileUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type telegramRequest struct {
	TelegramID int64 `json:"telegramId"`
}

func (h *Handler) linkTelegram(w http.ResponseWriter, r *http.Request) {
	var req telegramRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.service.LinkTelegram(r.Context(), auth.UserID(r.Context()), req.TelegramID)
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// calculateCalories reports an incomplete profile as 500, matching the
// documented contract of this endpoint.
func (h *Handler) calculateCalories(w http.ResponseWriter, r *http.Request) {
	targets, err := h.service.CalculateCalories(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

type progressRequest struct {
	Weight float64 `json:"weight"`
	Notes  string  `json:"notes"`
}

func (h *Handler) logProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entries, err := h.service.LogProgress(r.Context(), auth.UserID(r.Context()), req.Weight, req.Notes)
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) listProgress(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Progress(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type planResponse struct {
	Message string      `json:"message"`
	Plan    interface{} `json:"plan"`
}

func (h *Handler) generateWorkout(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GenerateWorkoutPlan(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Message: "Workout plan generated successfully", Plan: plan})
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.WorkoutPlans(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.WorkoutPlan(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWorkoutPlan(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Workout plan deleted"})
}

func (h *Handler) generateMeal(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GenerateMealPlan(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Message: "Meal plan generated successfully", Plan: plan})
}

func (h *Handler) listMeals(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.MealPlans(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) getMeal(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.MealPlan(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) deleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMealPlan(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Meal plan deleted"})
}

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []gpt.Message `json:"conversationHistory"`
}

type chatResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := h.service.Chat(r.Context(), auth.UserID(r.Context()), req.Message, req.ConversationHistory)
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Message: reply, Timestamp: time.Now().UTC()})
}

type checkoutResponse struct {
	SessionID      string `json:"sessionId"`
	URL            string `json:"url"`
	PublishableKey string `json:"publishableKey,omitempty"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.StartCheckout(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{
		SessionID:      sess.ID,
		URL:            sess.URL,
		PublishableKey: sess.PublishableKey,
	})
}

func (h *Handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhooks == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Billing is not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to read body")
		return
	}
	sess, err := h.webhooks.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warnw("Rejected Stripe webhook", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_signature", "invalid webhook")
		return
	}
	if sess != nil {
		if err := h.service.CompleteCheckout(r.Context(), sess); err != nil {
			h.writeServiceError(w, err, http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// writeServiceError maps service and generation errors to HTTP. Generation
// failures carry only the public message; details go to the log.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, incompleteProfileStatus int) {
	if kind := apperr.KindOf(err); kind != "" {
		status := http.StatusInternalServerError
		if kind == apperr.IncompleteProfile {
			status = incompleteProfileStatus
		} else {
			h.logger.Errorw("Generation failed", "kind", kind, "retryable", apperr.Retryable(kind), "error", err)
		}
		writeError(w, status, string(kind), apperr.PublicMessage(err))
		return
	}

	switch {
	case errors.Is(err, fitness.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed",
			strings.TrimPrefix(err.Error(), fitness.ErrInvalidInput.Error()+": "))
	case errors.Is(err, fitness.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, fitness.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Plan not found")
	case errors.Is(err, fitness.ErrEmailTaken):
		writeError(w, http.StatusConflict, "conflict", "Email already registered")
	case errors.Is(err, fitness.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid login credentials")
	case errors.Is(err, fitness.ErrPremiumRequired):
		writeError(w, http.StatusPaymentRequired, "payment_required", "A premium subscription is required to generate plans")
	case errors.Is(err, fitness.ErrBillingDisabled):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Billing is not configured")
	default:
		h.logger.Errorw("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
		"type":  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
