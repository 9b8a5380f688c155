package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/httpx"
	"github.com/openpath/gatekeeper/pkg/idx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// maxReportBytes bounds the opaque report payload machines may submit.
const maxReportBytes = 64 << 10

// MachineHandlers owns the machine-facing registry and report-ingestion
// endpoints. These sit behind the shared-secret middleware, not bearer
// auth; client machines have no user identity.
type MachineHandlers struct {
	Store store.Store
}

type registerMachineRequest struct {
	Hostname  string `json:"hostname"`
	Classroom string `json:"classroom,omitempty"`
}

func (h *MachineHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var body registerMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	hostname := strings.TrimSpace(strings.ToLower(body.Hostname))
	if hostname == "" {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "hostname is required")
		return
	}

	now := time.Now().UTC()
	machine := domain.Machine{
		ID:           idx.New().String(),
		Hostname:     hostname,
		Classroom:    strings.TrimSpace(body.Classroom),
		RegisteredAt: now,
		LastSeenAt:   now,
	}
	if err := h.Store.Machines().UpsertMachine(r.Context(), machine); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("machine registered",
		"hostname", hostname,
		"classroom", machine.Classroom,
	)
	httpx.WriteSuccess(w, http.StatusOK, nil)
}

func (h *MachineHandlers) List(w http.ResponseWriter, r *http.Request) {
	machines, err := h.Store.Machines().ListMachines(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"machines": machines,
		"count":    len(machines),
	})
}

type reportRequest struct {
	Hostname string          `json:"hostname"`
	Payload  json.RawMessage `json:"payload"`
}

// SubmitReport persists a raw health report. The payload is opaque; the
// service validates only that it is JSON and within size bounds.
func (h *MachineHandlers) SubmitReport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxReportBytes+1))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "unreadable body")
		return
	}
	if len(raw) > maxReportBytes {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "report too large")
		return
	}

	var body reportRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	hostname := strings.TrimSpace(strings.ToLower(body.Hostname))
	if hostname == "" {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "hostname is required")
		return
	}

	report := domain.Report{
		ID:         idx.New().String(),
		Hostname:   hostname,
		Payload:    body.Payload,
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.Store.Reports().CreateReport(r.Context(), report); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusAccepted, nil)
}
