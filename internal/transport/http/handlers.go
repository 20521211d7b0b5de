package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	accountmodels "slotbook/internal/account/models"
	accountservice "slotbook/internal/account/service"
	profilemodels "slotbook/internal/profile/models"
	profileservice "slotbook/internal/profile/service"
	scheduleservice "slotbook/internal/schedule/service"
	dErrors "slotbook/pkg/domain-errors"
)

// Handler is the thin HTTP layer. It decodes requests, delegates to domain
// services, and maps coded errors to status codes; no business logic here.
type Handler struct {
	accounts        *accountservice.Service
	accountProfiles *accountservice.ProfileService
	profiles        *profileservice.Service
	schedule        *scheduleservice.Manager
	bookings        *scheduleservice.Arbiter
	logger          *slog.Logger
}

func NewHandler(
	accounts *accountservice.Service,
	accountProfiles *accountservice.ProfileService,
	profiles *profileservice.Service,
	schedule *scheduleservice.Manager,
	bookings *scheduleservice.Arbiter,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accounts:        accounts,
		accountProfiles: accountProfiles,
		profiles:        profiles,
		schedule:        schedule,
		bookings:        bookings,
		logger:          logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type slotTimesRequest struct {
	SlotTimes []time.Time `json:"slotTimes"`
}

type bookRequest struct {
	SpecialistID int64     `json:"specialistId"`
	SlotTime     time.Time `json:"slotTime"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.accounts.Register(r.Context(), req.Email, req.Username, req.Password, accountmodels.Role(req.Role))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "account registered"})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleGetAccountProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accountProfiles.GetOwn(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateAccountProfile(w http.ResponseWriter, r *http.Request) {
	var update accountmodels.ProfileUpdate
	if !decode(w, r, &update) {
		return
	}
	profile, err := h.accountProfiles.Update(r.Context(), UserID(r.Context()), update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleClearAccountProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accountProfiles.Clear(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetOwn(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update profilemodels.ProfileUpdate
	if !decode(w, r, &update) {
		return
	}
	profile, err := h.profiles.Update(r.Context(), UserID(r.Context()), update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleClearProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Clear(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleGetOwnSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.schedule.GetOwn(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *Handler) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	schedule, err := h.schedule.GetBySpecialistID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *Handler) handleAddSlots(w http.ResponseWriter, r *http.Request) {
	var req slotTimesRequest
	if !decode(w, r, &req) {
		return
	}
	schedule, err := h.schedule.AddSlots(r.Context(), UserID(r.Context()), req.SlotTimes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *Handler) handleReplaceSlots(w http.ResponseWriter, r *http.Request) {
	var req slotTimesRequest
	if !decode(w, r, &req) {
		return
	}
	schedule, err := h.schedule.ReplaceSlots(r.Context(), UserID(r.Context()), req.SlotTimes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	slot, err := h.bookings.Book(r.Context(), req.SpecialistID, req.SlotTime, UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *Handler) handleMyBooking(w http.ResponseWriter, r *http.Request) {
	slot, err := h.bookings.MyBooking(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}

func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable, dErrors.CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
