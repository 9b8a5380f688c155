package http

import (
	"encoding/json"
	"net/http"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/pkg/httpx"
)

// RequestHandlers owns the domain-request lifecycle endpoints. Submit is
// public (students have no accounts); everything else requires a verified
// principal.
type RequestHandlers struct {
	Workflow *service.RequestWorkflow
}

type submitRequest struct {
	Domain         string `json:"domain"`
	Reason         string `json:"reason"`
	RequesterEmail string `json:"requester_email"`
	GroupID        string `json:"group_id"`
	Priority       string `json:"priority,omitempty"`
}

func (h *RequestHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	req, err := h.Workflow.Submit(r.Context(), service.SubmitInput{
		Domain:         body.Domain,
		Reason:         body.Reason,
		RequesterEmail: body.RequesterEmail,
		GroupID:        body.GroupID,
		Priority:       domain.RequestPriority(body.Priority),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, map[string]any{
		"request": req,
	})
}

func (h *RequestHandlers) List(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	var status *domain.RequestStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.RequestStatus(s)
		status = &st
	}

	reqs, err := h.Workflow.List(r.Context(), status, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"requests": reqs,
		"count":    len(reqs),
	})
}

type approveRequest struct {
	GroupID string `json:"group_id,omitempty"` // overrides the requested group
}

func (h *RequestHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	var body approveRequest
	// Body is optional; an empty body approves into the requested group.
	_ = json.NewDecoder(r.Body).Decode(&body)

	req, err := h.Workflow.Approve(r.Context(), r.PathValue("id"), body.GroupID, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"request": req,
	})
}

type rejectRequest struct {
	Note string `json:"note,omitempty"`
}

func (h *RequestHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	var body rejectRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	req, err := h.Workflow.Reject(r.Context(), r.PathValue("id"), body.Note, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"request": req,
	})
}

func (h *RequestHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	if err := h.Workflow.Delete(r.Context(), r.PathValue("id"), p); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, nil)
}
