package session

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	COOKIE_NAME = "phonebook_session"

	flashKey   = "_flash"
	formKeyKey = "_formkey"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists session values by session id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error

	// PurgeExpired drops expired sessions and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
}

type Session struct {
	ID      string
	values  map[string]string
	changed bool
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), values: make(map[string]string)}
}

func (s *Session) Get(key string) string {
	return s.values[key]
}

func (s *Session) Set(key, value string) {
	if current, ok := s.values[key]; ok && current == value {
		return
	}
	s.values[key] = value
	s.changed = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.changed = true
}

func (s *Session) SetFlash(message string) {
	s.Set(flashKey, message)
}

// PopFlash returns the pending flash message, if any, and clears it.
func (s *Session) PopFlash() string {
	message := s.values[flashKey]
	s.Delete(flashKey)
	return message
}

// FormKey returns the session's form key, issuing one on first use.
func (s *Session) FormKey() string {
	key := s.values[formKeyKey]
	if key == "" {
		key = uuid.NewString()
		s.Set(formKeyKey, key)
	}

	return key
}

func (s *Session) CheckFormKey(key string) bool {
	expected := s.values[formKeyKey]
	if expected == "" || key == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(key)) == 1
}

func (s *Session) Changed() bool {
	return s.changed
}

// Manager ties a Store to the session cookie.
type Manager struct {
	store  Store
	ttl    time.Duration
	Secure bool
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// Load returns the session referenced by the request cookie, or a fresh
// session when there is no cookie or the stored session has expired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(COOKIE_NAME)
	if err != nil || cookie.Value == "" {
		return newSession(), nil
	}

	values, err := m.store.Load(r.Context(), cookie.Value)
	if errors.Is(err, ErrSessionNotFound) {
		return newSession(), nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}

	return &Session{ID: cookie.Value, values: values}, nil
}

// Save persists a changed session and (re)sets its cookie on rw.
func (m *Manager) Save(ctx context.Context, rw http.ResponseWriter, s *Session) error {
	if !s.changed {
		return nil
	}

	err := m.store.Save(ctx, s.ID, s.values, m.ttl)
	if err != nil {
		return errors.Wrap(err, "save session")
	}
	s.changed = false

	http.SetCookie(rw, &http.Cookie{
		Name:     COOKIE_NAME,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (m *Manager) Destroy(ctx context.Context, rw http.ResponseWriter, s *Session) error {
	err := m.store.Delete(ctx, s.ID)
	if err != nil {
		return errors.Wrap(err, "delete session")
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     COOKIE_NAME,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	return nil
}

func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.store.PurgeExpired(ctx)
}
