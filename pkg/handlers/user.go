package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"authservice/pkg/auth"
)

type Handler struct {
	Service    auth.ServiceInterface
	Logger     *slog.Logger
	CookieName string
}

func NewUserHandler(service auth.ServiceInterface, logger *slog.Logger, cookieName string) *Handler {
	return &Handler{
		Service:    service,
		Logger:     logger,
		CookieName: cookieName,
	}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	WriteResp(w, h.Logger, map[string]string{"message": "Bienvenue"}, http.StatusOK)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue(formEmail)

	u, err := h.Service.Register(r.Context(), email, r.PostFormValue(formPassword))
	switch {
	case errors.Is(err, auth.ErrDuplicateIdentity):
		writeError(w, http.StatusBadRequest, typeMessage, "email already registered")
		return
	case errors.Is(err, auth.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, typeMessage, err.Error())
		return
	case err != nil:
		h.Logger.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}

	if ok := WriteResp(w, h.Logger, map[string]string{"email": u.Email, "message": "user created"}, http.StatusOK); ok {
		h.Logger.Info("register", "user", u.ID)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue(formEmail)
	ctx := r.Context()

	if !h.Service.ValidLogin(ctx, email, r.PostFormValue(formPassword)) {
		writeError(w, http.StatusUnauthorized, typeMessage, "unauthorized")
		return
	}

	token, err := h.Service.CreateSession(ctx, email)
	if err != nil {
		h.Logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, typeMessage, "unauthorized")
		return
	}

	setSessionCookie(w, h.CookieName, token)
	WriteResp(w, h.Logger, map[string]string{"email": email, "message": "logged in"}, http.StatusOK)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.Service.ResolvePrincipal(ctx, sessionToken(r, h.CookieName))
	if err != nil {
		h.Logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}
	if u == nil {
		writeError(w, http.StatusForbidden, typeMessage, "Forbidden")
		return
	}

	if err := h.Service.Logout(ctx, u.ID); err != nil {
		h.Logger.Error("logout", "error", err, "user", u.ID)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}

	clearSessionCookie(w, h.CookieName)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.ResolvePrincipal(r.Context(), sessionToken(r, h.CookieName))
	if err != nil {
		h.Logger.Error("profile", "error", err)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}
	if u == nil {
		writeError(w, http.StatusForbidden, typeMessage, "Forbidden")
		return
	}

	WriteResp(w, h.Logger, map[string]string{"email": u.Email}, http.StatusOK)
}

func (h *Handler) GetResetPasswordToken(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue(formEmail)

	token, err := h.Service.IssueResetToken(r.Context(), email)
	switch {
	case errors.Is(err, auth.ErrUnknownIdentity):
		writeError(w, http.StatusForbidden, typeMessage, "Forbidden")
		return
	case err != nil:
		h.Logger.Error("reset token", "error", err)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}

	WriteResp(w, h.Logger, map[string]string{"email": email, "reset_token": token}, http.StatusOK)
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue(formEmail)

	err := h.Service.ConsumeResetToken(r.Context(), r.PostFormValue(formResetToken), r.PostFormValue(formNewPassword))
	switch {
	case errors.Is(err, auth.ErrInvalidOrExpiredToken), errors.Is(err, auth.ErrInvalidRequest):
		writeError(w, http.StatusForbidden, typeMessage, "Forbidden")
		return
	case err != nil:
		h.Logger.Error("update password", "error", err)
		writeError(w, http.StatusInternalServerError, typeMessage, "internal error")
		return
	}

	WriteResp(w, h.Logger, map[string]string{"email": email, "message": "Password updated"}, http.StatusOK)
}
