package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetProgressMissingRecordIs404(t *testing.T) {
	gin.SetMode(gin.TestMode)

	records := &fakeRecords{notFound: true}
	h := &Handler{Sessions: newHandlerTestManager(t, records)}

	r := gin.New()
	r.GET("/progress", asUser(1), h.GetProgress)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/progress", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w.Code)
	}
}
