// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the Meridian gateway over HTTP.
//
// # Description
//
// Every handler is a constructor returning a gin.HandlerFunc, closed
// over the engine subsystems it needs. Pipeline errors are converted to
// the wire taxonomy in one place (writeError) so the status mapping
// cannot drift between endpoints.
//
// # Thread Safety
//
// Handlers hold no mutable state of their own; concurrency is the
// engine's concern.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Error codes surfaced on the wire.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeBudgetExceeded      = "BUDGET_EXCEEDED"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeAllProvidersFailed  = "ALL_PROVIDERS_FAILED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorBody is the uniform error envelope.
type ErrorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Details    any    `json:"details,omitempty"`
}

// writeError maps a pipeline error onto the HTTP taxonomy.
func writeError(c *gin.Context, err error, details any) {
	status := http.StatusInternalServerError
	code := CodeInternal
	label := "internal error"

	var pe *datatypes.ProviderError
	switch {
	case errors.Is(err, datatypes.ErrInvalidInput):
		status, code, label = http.StatusBadRequest, CodeInvalidInput, "invalid input"
	case errors.Is(err, datatypes.ErrBudgetExceeded):
		status, code, label = http.StatusTooManyRequests, CodeBudgetExceeded, "budget exceeded"
	case errors.Is(err, datatypes.ErrModelNotFound):
		status, code, label = http.StatusServiceUnavailable, CodeProviderUnavailable, "provider unavailable"
	case errors.Is(err, datatypes.ErrAllCascadeStepsFailed):
		status, code, label = http.StatusBadGateway, CodeAllProvidersFailed, "all cascade steps failed"
	case errors.As(err, &pe):
		status, code, label = http.StatusBadGateway, CodeProviderError, "provider error"
		if details == nil {
			details = gin.H{"provider": pe.Provider, "model": pe.Model, "providerStatus": pe.StatusCode}
		}
	}

	c.JSON(status, ErrorBody{
		Error:      label,
		Code:       code,
		Message:    err.Error(),
		StatusCode: status,
		Details:    details,
	})
}

// bindingMessage flattens validator errors into one readable line.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msg := "validation failed:"
	for _, fe := range verrs {
		msg += " " + fe.Field() + " (" + fe.Tag() + ")"
	}
	return msg
}

// writeBindError reports a malformed or invalid request body.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorBody{
		Error:      "invalid input",
		Code:       CodeInvalidInput,
		Message:    bindingMessage(err),
		StatusCode: http.StatusBadRequest,
	})
}
