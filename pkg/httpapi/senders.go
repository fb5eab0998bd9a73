package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sendlater/sendlater/pkg/mailer"
	"github.com/sendlater/sendlater/pkg/scheduler"
)

type createSenderRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	SMTPUser    string `json:"smtp_user"`
	SMTPPass    string `json:"smtp_pass"`
	HourlyLimit int    `json:"hourly_limit"`
}

func (req *createSenderRequest) validate() error {
	if !mailer.ValidAddress(req.Email) {
		return fmt.Errorf("email is not a valid address")
	}
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.SMTPUser == "" || req.SMTPPass == "" {
		return fmt.Errorf("smtp_user and smtp_pass are required")
	}
	if req.HourlyLimit < 0 {
		return fmt.Errorf("hourly_limit must not be negative")
	}
	return nil
}

func (h *handlers) createSender(w http.ResponseWriter, r *http.Request) {
	var req createSenderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sender := &scheduler.Sender{
		ID:          uuid.New(),
		Email:       req.Email,
		Name:        req.Name,
		SMTPUser:    req.SMTPUser,
		SMTPPass:    req.SMTPPass,
		HourlyLimit: req.HourlyLimit,
		IsActive:    true,
	}
	if err := h.deps.Senders.Create(r.Context(), sender); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sender)
}

func (h *handlers) listSenders(w http.ResponseWriter, r *http.Request) {
	senders, err := h.deps.Senders.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if senders == nil {
		senders = []scheduler.Sender{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"senders": senders,
		"count":   len(senders),
	})
}

func (h *handlers) getSender(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid sender id")
		return
	}

	sender, err := h.deps.Senders.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sender)
}

// updateSenderRequest carries partial updates; nil fields keep their value.
type updateSenderRequest struct {
	Email       *string `json:"email"`
	Name        *string `json:"name"`
	SMTPUser    *string `json:"smtp_user"`
	SMTPPass    *string `json:"smtp_pass"`
	HourlyLimit *int    `json:"hourly_limit"`
	IsActive    *bool   `json:"is_active"`
}

func (h *handlers) updateSender(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid sender id")
		return
	}

	var req updateSenderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sender, err := h.deps.Senders.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if req.Email != nil {
		if !mailer.ValidAddress(*req.Email) {
			h.writeError(w, http.StatusBadRequest, "email is not a valid address")
			return
		}
		sender.Email = *req.Email
	}
	if req.Name != nil {
		sender.Name = *req.Name
	}
	if req.SMTPUser != nil {
		sender.SMTPUser = *req.SMTPUser
	}
	if req.SMTPPass != nil {
		sender.SMTPPass = *req.SMTPPass
	}
	if req.HourlyLimit != nil {
		if *req.HourlyLimit < 0 {
			h.writeError(w, http.StatusBadRequest, "hourly_limit must not be negative")
			return
		}
		sender.HourlyLimit = *req.HourlyLimit
	}
	if req.IsActive != nil {
		sender.IsActive = *req.IsActive
	}

	if err := h.deps.Senders.Update(r.Context(), sender); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sender)
}

func (h *handlers) deleteSender(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid sender id")
		return
	}

	if err := h.deps.Senders.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
