package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sendlater/sendlater/pkg/scheduler"
)

// Bounds mirror the public API contract: short enough to keep a single
// request's fan-out manageable, long enough for real campaigns.
const (
	maxSubjectLen     = 500
	maxBulkRecipients = 10000
	minDelaySeconds   = 1
	maxDelaySeconds   = 3600
)

type scheduleEmailRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	SenderID uuid.UUID `json:"sender_id"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	SendAt   time.Time `json:"send_at"`
}

func (req *scheduleEmailRequest) validate() error {
	if req.SenderID == uuid.Nil {
		return fmt.Errorf("sender_id is required")
	}
	if req.To == "" {
		return fmt.Errorf("to is required")
	}
	if l := len(req.Subject); l < 1 || l > maxSubjectLen {
		return fmt.Errorf("subject must be between 1 and %d characters", maxSubjectLen)
	}
	return nil
}

func (h *handlers) scheduleEmail(w http.ResponseWriter, r *http.Request) {
	var req scheduleEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SendAt.IsZero() {
		req.SendAt = time.Now()
	}

	id, err := h.deps.Scheduler.ScheduleOne(r.Context(), scheduler.ScheduleParams{
		UserID:   req.UserID,
		SenderID: req.SenderID,
		To:       req.To,
		Subject:  req.Subject,
		Body:     req.Body,
		SendAt:   req.SendAt,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":           id,
		"status":       scheduler.StatusScheduled,
		"scheduled_at": req.SendAt,
	})
}

type scheduleBulkRequest struct {
	UserID              uuid.UUID `json:"user_id"`
	SenderID            uuid.UUID `json:"sender_id"`
	Recipients          []string  `json:"recipients"`
	Subject             string    `json:"subject"`
	Body                string    `json:"body"`
	StartTime           time.Time `json:"start_time"`
	DelayBetweenSeconds int       `json:"delay_between_seconds"`

	// Accepted for compatibility with older clients; the per-sender limit
	// stored on the sender record is authoritative.
	HourlyLimit int `json:"hourly_limit"`
}

func (req *scheduleBulkRequest) validate() error {
	if req.SenderID == uuid.Nil {
		return fmt.Errorf("sender_id is required")
	}
	if l := len(req.Recipients); l < 1 || l > maxBulkRecipients {
		return fmt.Errorf("recipients must contain between 1 and %d addresses", maxBulkRecipients)
	}
	if l := len(req.Subject); l < 1 || l > maxSubjectLen {
		return fmt.Errorf("subject must be between 1 and %d characters", maxSubjectLen)
	}
	if req.DelayBetweenSeconds < minDelaySeconds || req.DelayBetweenSeconds > maxDelaySeconds {
		return fmt.Errorf("delay_between_seconds must be between %d and %d", minDelaySeconds, maxDelaySeconds)
	}
	return nil
}

func (h *handlers) scheduleBulk(w http.ResponseWriter, r *http.Request) {
	var req scheduleBulkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.StartTime.IsZero() {
		req.StartTime = time.Now()
	}

	ids, err := h.deps.Scheduler.ScheduleBulk(r.Context(), scheduler.BulkParams{
		UserID:       req.UserID,
		SenderID:     req.SenderID,
		Recipients:   req.Recipients,
		Subject:      req.Subject,
		Body:         req.Body,
		StartTime:    req.StartTime,
		DelayBetween: time.Duration(req.DelayBetweenSeconds) * time.Second,
		HourlyLimit:  req.HourlyLimit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"ids":        ids,
		"count":      len(ids),
		"start_time": req.StartTime,
	})
}

func (h *handlers) listScheduled(w http.ResponseWriter, r *http.Request) {
	h.listEmails(w, r, scheduler.PendingStatuses)
}

func (h *handlers) listSent(w http.ResponseWriter, r *http.Request) {
	h.listEmails(w, r, []scheduler.Status{scheduler.StatusSent})
}

func (h *handlers) listEmails(w http.ResponseWriter, r *http.Request, statuses []scheduler.Status) {
	filter := scheduler.EmailFilter{
		Statuses: statuses,
		Limit:    100,
	}

	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = userID
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			h.writeError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = offset
	}

	emails, err := h.deps.Emails.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if emails == nil {
		emails = []scheduler.Email{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"emails": emails,
		"count":  len(emails),
	})
}

func (h *handlers) getEmail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	email, err := h.deps.Emails.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, email)
}

func (h *handlers) cancelEmail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	if err := h.deps.Scheduler.Cancel(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
