package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-shop-auth/internal/httputil"
)

type contextKey struct{}

// FromContext returns the session attached by Manager.Middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Config holds session cookie settings.
type Config struct {
	CookieName string
	TTL        time.Duration
	Cookie     httputil.CookieConfig
}

// Manager loads the session named by the request cookie and saves it back
// before the response is written.
type Manager struct {
	store  Store
	config Config
	logger *slog.Logger
}

func NewManager(store Store, config Config, logger *slog.Logger) *Manager {
	if config.CookieName == "" {
		config.CookieName = "shop_session"
	}
	if config.TTL <= 0 {
		config.TTL = 2 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, config: config, logger: logger}
}

// Middleware attaches the visitor session to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		sw := &sessionWriter{ResponseWriter: w, commit: func() { m.save(w, r, sess) }}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), contextKey{}, sess)))
		sw.flush()
	})
}

func (m *Manager) load(r *http.Request) *Session {
	id, ok := httputil.GetCookie(r, m.config.CookieName)
	if !ok {
		return m.fresh()
	}

	data, err := m.store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("failed to load session", "error", err)
		}
		return m.fresh()
	}

	values, err := decodeValues(data)
	if err != nil {
		m.logger.Warn("discarding corrupt session", "error", err)
		return m.fresh()
	}
	return &Session{id: id, values: values}
}

func (m *Manager) fresh() *Session {
	return newSession(uuid.NewString())
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *Session) {
	ctx := r.Context()
	if s.regenerated {
		previous := s.id
		s.id = uuid.NewString()
		s.regenerated = false
		if err := m.store.Delete(ctx, previous); err != nil {
			m.logger.Error("failed to delete previous session", "error", err)
		}
	}

	// Saving refreshes the TTL, so every request touches the store.
	data, err := s.encode()
	if err != nil {
		m.logger.Error("failed to encode session", "error", err)
		return
	}
	if err := m.store.Save(ctx, s.id, data, m.config.TTL); err != nil {
		m.logger.Error("failed to save session", "error", err)
		return
	}
	httputil.SetCookie(w, m.config.CookieName, s.id, m.config.TTL, m.config.Cookie)
}

// sessionWriter saves the session just before the status line goes out, so
// the cookie header can still be set.
type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionWriter) flush() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
