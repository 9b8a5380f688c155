package http

import (
	"encoding/json"
	"net/http"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/pkg/httpx"
)

// RoleHandlers owns role administration. All routes sit behind the admin
// middleware; the handlers only shape input and output.
type RoleHandlers struct {
	Roles *service.RolesService
}

type assignRoleRequest struct {
	UserID   string   `json:"user_id"`
	Role     string   `json:"role"`
	GroupIDs []string `json:"group_ids,omitempty"`
}

func (h *RoleHandlers) Assign(w http.ResponseWriter, r *http.Request) {
	var body assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "user_id is required")
		return
	}

	role, err := h.Roles.Assign(r.Context(), body.UserID, domain.RoleKind(body.Role), body.GroupIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"role": roleView(role),
	})
}

func (h *RoleHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.Roles.Revoke(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, nil)
}

func (h *RoleHandlers) ListForUser(w http.ResponseWriter, r *http.Request) {
	includeRevoked := r.URL.Query().Get("include_revoked") == "true"

	roles, err := h.Roles.ListForUser(r.Context(), r.PathValue("user_id"), includeRevoked)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(roles))
	for _, role := range roles {
		views = append(views, roleView(role))
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"roles": views,
	})
}

func roleView(role domain.Role) map[string]any {
	v := map[string]any{
		"id":         role.ID,
		"user_id":    role.UserID,
		"role":       string(role.Kind),
		"group_ids":  role.GroupIDs,
		"created_at": role.CreatedAt,
		"updated_at": role.UpdatedAt,
	}
	if role.RevokedAt != nil {
		v["revoked_at"] = *role.RevokedAt
	}
	return v
}
