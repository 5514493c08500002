package apierrors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRegistry_CoreCodesRegistered(t *testing.T) {
	mustExist := []string{
		CodeInvalidRequest,
		CodeNotFound,
		CodeBuildFailed,
		CodeNoEntryPoint,
		CodeInternalError,
	}

	for _, code := range mustExist {
		if _, ok := Registry.Get(code); !ok {
			t.Errorf("code %q not registered", code)
		}
	}
}

func TestRegistry_Namespacing(t *testing.T) {
	codes := Registry.ByNamespace("devserver")
	require.NotEmpty(t, codes)

	for _, code := range codes {
		assert.True(t, strings.HasPrefix(code.Code, "devserver:"), "code %q should be namespaced", code.Code)
	}
}

func TestRegistry_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeBuildFailed, http.StatusUnprocessableEntity},
		{CodeInternalError, http.StatusInternalServerError},
		{"devserver:unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, Registry.HTTPStatus(tt.code))
		})
	}
}

func TestRegistry_MessageFallsBackToCode(t *testing.T) {
	assert.Equal(t, "other:thing", Registry.Message("other:thing"))
	assert.Equal(t, "Plugin not found", Registry.Message(CodeNotFound))
}

func TestErrorWithData(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorWithData(c, CodeBuildFailed, "boom", gin.H{"plugin": gin.H{"id": "alpha"}, "error": "ignored"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":{"code":"devserver:build_failed","message":"boom"},"plugin":{"id":"alpha"}}`, w.Body.String())
}
