// helpers_test.go - Shared test app, fakes and request helpers

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"go-user-backend/auth"
	"go-user-backend/config"
	"go-user-backend/database"
	"go-user-backend/events"
	"go-user-backend/handlers"
	"go-user-backend/models"
	"go-user-backend/routes"
	"go-user-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Secret1!"

func init() {
	gin.SetMode(gin.TestMode)
}

type sentMail struct {
	to, subject, body string
}

type captureMailer struct {
	sent chan sentMail
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.sent <- sentMail{to: to, subject: subject, body: body}
	return nil
}

// next waits for the next outgoing message.
func (m *captureMailer) next(t *testing.T) sentMail {
	t.Helper()
	select {
	case msg := <-m.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected an email to be sent")
		return sentMail{}
	}
}

func (m *captureMailer) none(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.sent:
		t.Fatalf("unexpected email to %s", msg.to)
	case <-time.After(100 * time.Millisecond):
	}
}

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]{64})`)

func tokenFrom(t *testing.T, msg sentMail) string {
	t.Helper()
	m := tokenInLink.FindStringSubmatch(msg.body)
	require.Len(t, m, 2, "no token in %q", msg.body)
	return m[1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testApp struct {
	router     *gin.Engine
	store      *store.Store
	tokens     *auth.TokenManager
	mail       *captureMailer
	published  *recordingPublisher
	dispatcher *events.Dispatcher
}

// setupTestApp builds the full router over a fresh in-memory database.
func setupTestApp(t *testing.T, customize ...func(*handlers.Deps)) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "test"})
	require.NoError(t, err)

	app := &testApp{
		store:     store.New(db),
		tokens:    tokens,
		mail:      &captureMailer{sent: make(chan sentMail, 10)},
		published: &recordingPublisher{},
	}
	app.dispatcher = events.NewDispatcher(app.published, 64)
	t.Cleanup(func() { _ = app.dispatcher.Close() })

	deps := handlers.Deps{
		Config: &config.Config{
			Env:        config.EnvTest,
			RefreshTTL: 24 * time.Hour,
			PublicURL:  "http://localhost:8080",
		},
		Store:  app.store,
		Hasher: auth.NewHasher(bcrypt.MinCost, 4),
		Tokens: tokens,
		Events: app.dispatcher,
		Mailer: app.mail,
	}
	for _, fn := range customize {
		fn(&deps)
	}
	app.router = routes.Setup(deps)
	return app
}

// createUser inserts an account directly and returns it.
func (a *testApp) createUser(t *testing.T, email, role string, active bool) *models.User {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{FirstName: "Test", LastName: "User", Email: email, Password: string(hash), Role: role, IsActive: true}
	require.NoError(t, a.store.CreateUser(ctx, u))

	if !active {
		u, err = a.store.ToggleActive(ctx, u.ID)
		require.NoError(t, err)
	}
	return u
}

func (a *testApp) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := a.tokens.Issue(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

func (a *testApp) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     email,
		"password":  testPassword,
	}
}

func login(t *testing.T, a *testApp, email, password string) map[string]any {
	t.Helper()
	w := a.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)
}
