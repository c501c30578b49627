package handler_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/passport/internal/handler"
	"github.com/xxxsen/passport/internal/repo"
	"github.com/xxxsen/passport/internal/service"
	"github.com/xxxsen/passport/test/testutil"
)

// captureSender records dispatched codes instead of talking to smtp.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSender) Send(to, code, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[to+"|"+purpose] = code
	return nil
}

func (s *captureSender) code(email, purpose string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email+"|"+purpose]
}

func setupRouter(t *testing.T) (http.Handler, func(), *captureSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	testutil.ResetTables(t, db)

	userRepo := repo.NewUserRepo(db)
	codeRepo := repo.NewVerificationRepo(db)

	jwtSecret := []byte("test-secret")
	sender := &captureSender{codes: map[string]string{}}
	verifier := service.NewVerificationService(codeRepo, sender, service.VerificationConfig{})
	identity := service.NewIdentityService(userRepo, 0)
	issuer := service.NewJWTIssuer(jwtSecret, time.Hour)
	authService := service.NewAuthService(userRepo, identity, verifier, nil, issuer, 10*time.Minute)

	engine := gin.New()
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api, handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userRepo),
		JWTSecret: jwtSecret,
	})
	return engine, cleanup, sender
}
