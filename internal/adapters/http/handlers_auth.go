package http

import (
	"net/http"

	"github.com/studentmarketplace/identity-service/internal/application"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	msg, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeMessage(w, http.StatusCreated, msg)
}

func (h *Handler) verifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyRegistrationRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_registration", err)
		return
	}

	res, err := h.service.VerifyRegistration(r.Context(), req, h.clientContext(r))
	if err != nil {
		writeMappedError(r.Context(), w, "verify_registration", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.Login(r.Context(), req, h.clientContext(r))
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req application.LogoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "logout", err)
		return
	}

	msg, err := h.service.Logout(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req application.RefreshTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "refresh_token", err)
		return
	}
	// The token owner comes from the validated access token, not the body.
	if claims, ok := claimsFromContext(r.Context()); ok {
		req.UserID = claims.UserID
	}

	res, err := h.service.RefreshToken(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh_token", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) clientContext(r *http.Request) application.ClientContext {
	return application.ClientContext{
		IPAddress: readIP(r, h.trustProxy),
		UserAgent: r.UserAgent(),
	}
}
