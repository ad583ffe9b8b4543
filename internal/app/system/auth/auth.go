// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

const (
	DefaultSessionName = "teamhub-session"

	userIDKey = "user_id"
)

// Users looks up the profile a session cookie names.
type Users interface {
	GetByID(ctx context.Context, id string) (models.Member, error)
}

// SessionManager signs members in and out with a cookie session and puts
// the signed-in member on each request's context.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	users Users
	log   *zap.Logger
}

// NewSessionManager builds the cookie store.
//
// An empty key gets a random one, so sessions do not survive a restart.
// In production (secure=true) cookies are Secure + SameSite=None; over
// plain http in development use secure=false.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, users Users, logger *zap.Logger) (*SessionManager, error) {
	key := []byte(sessionKey)
	switch {
	case len(key) == 0:
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("generate session key: no randomness available")
		}
		logger.Warn("session key is empty; using a random key for this process")
	case len(key) < 32:
		logger.Warn("session key is short; 32+ bytes recommended", zap.Int("length", len(key)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	hashKey, blockKey, err := cookieKeys(key)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, users: users, log: logger}, nil
}

// cookieKeys expands the configured secret into an HMAC key and an AES-256
// key, so the cookie is both signed and encrypted.
func cookieKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	r := hkdf.New(sha256.New, secret, nil, []byte("teamhub session cookie"))
	hashKey = make([]byte, 32)
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive session hash key: %w", err)
	}
	if _, err := io.ReadFull(r, blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive session block key: %w", err)
	}
	return hashKey, blockKey, nil
}

// SignIn records userID in the session cookie.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[userIDKey] = userID
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSession puts the signed-in member on the request context. Requests
// without a valid cookie, or whose member no longer exists, continue
// anonymously.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			m.log.Debug("ignoring unreadable session cookie", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		userID, _ := sess.Values[userIDKey].(string)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		member, err := m.users.GetByID(ctx, userID)
		cancel()
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				m.log.Info("session names an unknown user", zap.String("user_id", userID))
			} else {
				m.log.Warn("load session user failed", zap.String("user_id", userID), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), session.New(member))))
	})
}

// RequireSignedIn answers 401 unless LoadSession found a member.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Current is the session LoadSession attached to r.
func Current(r *http.Request) (session.Session, bool) {
	return session.FromContext(r.Context())
}
