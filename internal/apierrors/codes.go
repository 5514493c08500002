// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "devserver:not_found").
package apierrors

import "net/http"

// Dev server error codes - registered automatically at init
const (
	CodeInvalidRequest = "devserver:invalid_request"
	CodeNotFound       = "devserver:not_found"

	// Build errors
	CodeBuildFailed  = "devserver:build_failed"
	CodeNoEntryPoint = "devserver:no_entry_point"

	CodeInternalError      = "devserver:internal_error"
	CodeServiceUnavailable = "devserver:service_unavailable"
)

var coreErrors = []ErrorCode{
	{Code: CodeInvalidRequest, Message: "Invalid request", HTTPStatus: http.StatusBadRequest},
	{Code: CodeNotFound, Message: "Plugin not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeBuildFailed, Message: "Plugin build failed", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeNoEntryPoint, Message: "Plugin has no entry point", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},
	{Code: CodeServiceUnavailable, Message: "Service temporarily unavailable", HTTPStatus: http.StatusServiceUnavailable},
}

func init() {
	for _, e := range coreErrors {
		Registry.Register(e)
	}
}
