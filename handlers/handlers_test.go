package handlers

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bustracker-app/bustracker/internal/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	r.SetFuncMap(TemplateFuncs())
	r.LoadHTMLGlob("../templates/*.html")
	return r
}

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		App:    config.AppConfig{BaseURL: "http://localhost:8080"},
		Google: config.GoogleOAuthConfig{
			ClientID:     "client-id",
			RedirectPath: "/oauth/callback",
		},
		Session: config.SessionConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
	}
}
