package types

import (
	"errors"
	"net/http"

	appErr "github.com/desp-aas/project-management/pkg/errors"
)

var statusByCode = map[appErr.Code]int{
	appErr.CodeInvalid:       http.StatusBadRequest,
	appErr.CodeNotFound:      http.StatusNotFound,
	appErr.CodeUnauthorized:  http.StatusUnauthorized,
	appErr.CodeForbidden:     http.StatusForbidden,
	appErr.CodeConflict:      http.StatusConflict,
	appErr.CodeAlreadyExists: http.StatusConflict,
	appErr.CodeRemoteService: http.StatusBadGateway,
	appErr.CodeUnavailable:   http.StatusServiceUnavailable,
	appErr.CodeDeadline:      http.StatusGatewayTimeout,
	appErr.CodeSetupFailed:   http.StatusInternalServerError,
	appErr.CodeInternal:      http.StatusInternalServerError,
}

// HTTPStatus maps an error code to the response status.
func HTTPStatus(err error) int {
	if s, ok := statusByCode[appErr.CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FromAppError renders err for clients. Causes of internal errors are not exposed.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		return &APIError{Code: string(appErr.CodeUnknown), Message: "internal error"}
	}
	out := &APIError{Code: string(ae.Code), Message: ae.Message, Service: string(appErr.ServiceOf(err))}
	if ae.Code == appErr.CodeInvalid && ae.Err != nil {
		out.Details = ae.Err.Error()
	}
	return out
}
