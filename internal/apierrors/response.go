package apierrors

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError represents the JSON error response structure
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends an error response using a registered error code
func Error(c *gin.Context, code string) {
	c.JSON(Registry.HTTPStatus(code), gin.H{"error": New(code)})
}

// ErrorWithMessage sends an error response with a custom message
func ErrorWithMessage(c *gin.Context, code, message string) {
	c.JSON(Registry.HTTPStatus(code), gin.H{"error": NewWithMessage(code, message)})
}

// ErrorWithData sends an error response with extra top-level fields,
// e.g. the plugin record a failed build left behind
func ErrorWithData(c *gin.Context, code, message string, data gin.H) {
	body := gin.H{"error": NewWithMessage(code, message)}
	for k, v := range data {
		if k != "error" {
			body[k] = v
		}
	}
	c.JSON(Registry.HTTPStatus(code), body)
}

// Write sends an error response on a plain http.ResponseWriter, for
// handlers mounted outside gin
func Write(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(Registry.HTTPStatus(code))
	json.NewEncoder(w).Encode(map[string]APIError{"error": New(code)})
}

// New creates an APIError without sending a response
func New(code string) APIError {
	return APIError{
		Code:    code,
		Message: Registry.Message(code),
	}
}

// NewWithMessage creates an APIError with a custom message
func NewWithMessage(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}
