package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveClientID(t *testing.T, header string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClientIdentity("local"))
	var got string
	r.GET("/", func(c *gin.Context) {
		got = ClientID(c)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderClientID, header)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIdentity(t *testing.T) {
	if got := serveClientID(t, ""); got != "local" {
		t.Fatalf("default client id = %q; want local", got)
	}
	if got := serveClientID(t, "  tablet-2 "); got != "tablet-2" {
		t.Fatalf("header client id = %q; want tablet-2", got)
	}
	if got := serveClientID(t, "   "); got != "local" {
		t.Fatalf("blank header should fall back, got %q", got)
	}
	if got := serveClientID(t, strings.Repeat("a", 300)); len(got) != maxClientIDLen {
		t.Fatalf("long client id should be capped at %d, got %d", maxClientIDLen, len(got))
	}
}

func TestClientID_AbsentIsEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := ClientID(c); got != "" {
		t.Fatalf("ClientID without middleware = %q; want empty", got)
	}
}
