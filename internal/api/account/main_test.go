package account

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	// Set JWT secret for handlers that issue session tokens
	os.Setenv("HACKATHON_JWT_SECRET", "test-account-jwt-secret-32-chars!!")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}
