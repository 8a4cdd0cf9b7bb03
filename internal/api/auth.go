package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// VerifyPassword gates the admin surface behind a shared secret. A
// missing server-side secret is a deployment fault, reported as 500 so it
// is never mistaken for a wrong password.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admin := h.config.Admin
	if admin.Password == "" && admin.PasswordHash == "" {
		h.writeError(w, http.StatusInternalServerError, "admin password is not configured")
		return
	}

	if h.passwordMatches(req.Password) {
		h.writeJSON(w, http.StatusOK, VerifyPasswordResponse{Success: true})
		return
	}

	h.writeJSON(w, http.StatusUnauthorized, VerifyPasswordResponse{Success: false})
}

// passwordMatches prefers the bcrypt hash when one is configured.
func (h *Handler) passwordMatches(candidate string) bool {
	admin := h.config.Admin

	if admin.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(admin.Password), []byte(candidate)) == 1
}
