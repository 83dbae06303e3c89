package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"linklock/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Error())
	router.GET("/test", handler)
	return router
}

func TestErrorRendersDomainError(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		c.Error(errutil.NotFound("locker not found"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, string(errutil.StatusNotFound), body.Error.Code)
	require.Equal(t, "locker not found", body.Error.Message)
}

func TestErrorRendersUnknownErrorAsInternal(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		c.Error(errors.New("boom"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorSkipsWrittenResponses(t *testing.T) {
	router := newTestRouter(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusOK, w.Code)
}
