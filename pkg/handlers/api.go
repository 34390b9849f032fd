package handlers

import (
	"log/slog"
	"net/http"

	"authservice/pkg/auth"
	"authservice/pkg/principal"
)

// APIHandler serves /api/v1; every route except the excluded ones sits behind access.Gate.
type APIHandler struct {
	Service    auth.ServiceInterface
	Logger     *slog.Logger
	CookieName string
}

func NewAPIHandler(service auth.ServiceInterface, logger *slog.Logger, cookieName string) *APIHandler {
	return &APIHandler{
		Service:    service,
		Logger:     logger,
		CookieName: cookieName,
	}
}

func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteResp(w, h.Logger, map[string]string{"status": "OK"}, http.StatusOK)
}

func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := principal.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, typeError, "Unauthorized")
		return
	}
	WriteResp(w, h.Logger, u, http.StatusOK)
}

func (h *APIHandler) SessionLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue(formEmail)
	password := r.PostFormValue(formPassword)

	if email == "" {
		writeError(w, http.StatusBadRequest, typeError, "email missing")
		return
	}
	if password == "" {
		writeError(w, http.StatusBadRequest, typeError, "password missing")
		return
	}

	ctx := r.Context()

	u, err := h.Service.Authenticate(ctx, email, password)
	if err != nil {
		h.Logger.Error("session login", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, typeError, "invalid credentials")
		return
	}

	token, err := h.Service.CreateSession(ctx, email)
	if err != nil {
		h.Logger.Error("session login", "error", err, "user", u.ID)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, typeError, "invalid credentials")
		return
	}

	setSessionCookie(w, h.CookieName, token)
	WriteResp(w, h.Logger, u, http.StatusOK)
}

func (h *APIHandler) SessionLogout(w http.ResponseWriter, r *http.Request) {
	u, ok := principal.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, typeError, "Unauthorized")
		return
	}

	if err := h.Service.Logout(r.Context(), u.ID); err != nil {
		h.Logger.Error("session logout", "error", err, "user", u.ID)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	clearSessionCookie(w, h.CookieName)
	WriteResp(w, h.Logger, map[string]string{}, http.StatusOK)
}
