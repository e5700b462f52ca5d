package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/acquisitions/internal/interfaces/http/dto"
)

func systemGET(t *testing.T, handle gin.HandlerFunc, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)

	handle(c)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	return w, data
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler()
	w, data := systemGET(t, h.GetSystemInfo, "/system/info")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acquisitions API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])

	startedAt, err := time.Parse(time.RFC3339, data["started_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), startedAt, time.Minute)
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler()
	w, data := systemGET(t, h.Ping, "/system/ping")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
