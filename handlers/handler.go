// handler.go - Shared dependencies and helpers for the HTTP handlers

package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"go-user-backend/apperrors"
	"go-user-backend/auth"
	"go-user-backend/config"
	"go-user-backend/events"
	"go-user-backend/mailer"
	"go-user-backend/metrics"
	"go-user-backend/models"
	"go-user-backend/ratelimit"
	"go-user-backend/store"

	"github.com/gin-gonic/gin"
)

// ResetTokenTTL is how long a password-reset link stays valid.
const ResetTokenTTL = time.Hour

// Deps are the components the handlers need. Limiter, Events and Metrics may
// be nil; Mailer defaults to a LogMailer.
type Deps struct {
	Config  *config.Config
	Store   *store.Store
	Hasher  *auth.Hasher
	Tokens  *auth.TokenManager
	Limiter *ratelimit.LoginLimiter // nil disables login throttling
	Events  *events.Dispatcher      // nil drops events
	Mailer  mailer.Mailer
	Metrics *metrics.Metrics // nil disables counters
	Now     func() time.Time // defaults to time.Now
}

type Handler struct {
	Deps
	dummyHash string // compared against when the email is unknown so login timing does not reveal it
}

func New(d Deps) *Handler {
	if d.Mailer == nil {
		d.Mailer = mailer.LogMailer{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &Handler{Deps: d}
	if hash, err := d.Hasher.Hash(context.Background(), auth.NewOpaqueToken()); err == nil {
		h.dummyHash = hash
	}
	return h
}

// fail writes err through the shared error mapping.
func (h *Handler) fail(c *gin.Context, err error) {
	apperrors.Respond(c, err, h.Config.IsDevelopment())
}

func (h *Handler) emit(eventType string, u *models.User, data map[string]any) {
	h.Events.Emit(events.Event{Type: eventType, UserID: u.ID, Email: u.Email, At: h.Now().UTC(), Data: data})
}

// sendMail delivers in the background; failures are only logged.
func (h *Handler) sendMail(to, subject, body string) {
	go func() {
		if err := h.Mailer.Send(to, subject, body); err != nil {
			log.Printf("mail to %s failed: %v", to, err)
		}
	}()
}

func (h *Handler) link(path, token string) string {
	return h.Config.PublicURL + path + "?token=" + token
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.Store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
