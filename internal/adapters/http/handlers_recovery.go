package http

import (
	"net/http"

	"github.com/studentmarketplace/identity-service/internal/application"
)

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req application.ForgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "forgot_password", err)
		return
	}

	msg, err := h.service.ForgotPassword(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "forgot_password", err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

func (h *Handler) verifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyForgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_forgot_password", err)
		return
	}

	msg, err := h.service.VerifyForgotPassword(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_forgot_password", err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req application.ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reset_password", err)
		return
	}

	msg, err := h.service.ResetPassword(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "reset_password", err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}
