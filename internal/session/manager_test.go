package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, Config{CookieName: "sid", TTL: time.Hour}, nil), store
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestManager_PersistsAcrossRequests(t *testing.T) {
	m, _ := newTestManager()

	put := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Put("captcha", "ab12")
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	put.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, w)

	var got string
	read := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context()).GetString("captcha")
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	read.ServeHTTP(httptest.NewRecorder(), r)

	if got != "ab12" {
		t.Errorf("captcha = %q, want ab12", got)
	}
}

func TestManager_UnknownCookieStartsFresh(t *testing.T) {
	m, _ := newTestManager()

	var id string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = FromContext(r.Context()).ID()
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})
	h.ServeHTTP(httptest.NewRecorder(), r)

	if id == "" || id == "forged" {
		t.Errorf("session id = %q, want a fresh id", id)
	}
}

func TestManager_Regenerate(t *testing.T) {
	m, store := newTestManager()

	first := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Put("cart", "x")
	}))
	w := httptest.NewRecorder()
	first.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	oldCookie := sessionCookie(t, w)

	second := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Regenerate()
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.AddCookie(oldCookie)
	w = httptest.NewRecorder()
	second.ServeHTTP(w, r)
	newCookie := sessionCookie(t, w)

	if newCookie.Value == oldCookie.Value {
		t.Fatal("session id should change after Regenerate")
	}
	if _, err := store.Load(r.Context(), oldCookie.Value); err == nil {
		t.Error("old session should be deleted")
	}
	data, err := store.Load(r.Context(), newCookie.Value)
	if err != nil {
		t.Fatalf("Load(new) error = %v", err)
	}
	values, _ := decodeValues(data)
	if values["cart"] != "x" {
		t.Errorf("cart = %v, want values carried over", values["cart"])
	}
}
