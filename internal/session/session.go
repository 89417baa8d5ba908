// Package session keeps per-visitor state between requests: the login
// challenge phrase, the guest cart, flash messages and the logged-in customer.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	flashKey    = "_flash"
	oldInputKey = "_old_input"
)

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the state of one visitor. It is not safe for concurrent use; a
// request owns its session.
type Session struct {
	id          string
	values      map[string]any
	regenerated bool
}

func newSession(id string) *Session {
	return &Session{id: id, values: make(map[string]any)}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (s *Session) GetString(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// GetInt64 returns the value under key as an integer. Values loaded from a
// store come back as json.Number.
func (s *Session) GetInt64(key string) (int64, bool) {
	switch v := s.values[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Decode copies the value under key into dst through its JSON form, so it
// works the same for values set in this request and values loaded from a
// store. It reports whether the key was present.
func (s *Session) Decode(key string, dst any) (bool, error) {
	v, ok := s.values[key]
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return true, fmt.Errorf("encode session value %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode session value %q: %w", key, err)
	}
	return true, nil
}

func (s *Session) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Session) Put(key string, value any) {
	s.values[key] = value
}

func (s *Session) Forget(key string) {
	delete(s.values, key)
}

// Flash queues a message for the next page.
func (s *Session) Flash(kind, message string) {
	var flashes []Flash
	_, _ = s.Decode(flashKey, &flashes)
	s.Put(flashKey, append(flashes, Flash{Kind: kind, Message: message}))
}

// Flashes returns and clears the queued messages.
func (s *Session) Flashes() []Flash {
	var flashes []Flash
	if _, err := s.Decode(flashKey, &flashes); err != nil {
		flashes = nil
	}
	s.Forget(flashKey)
	return flashes
}

// FlashInput keeps submitted form values for the next page.
func (s *Session) FlashInput(input map[string]string) {
	s.Put(oldInputKey, input)
}

// OldInput returns and clears the form values kept by FlashInput.
func (s *Session) OldInput() map[string]string {
	var input map[string]string
	if _, err := s.Decode(oldInputKey, &input); err != nil {
		input = nil
	}
	s.Forget(oldInputKey)
	return input
}

// Regenerate moves the session to a new id when it is saved. Values are kept.
func (s *Session) Regenerate() {
	s.regenerated = true
}

// Invalidate drops every value and moves the session to a new id.
func (s *Session) Invalidate() {
	s.values = make(map[string]any)
	s.Regenerate()
}

func (s *Session) encode() ([]byte, error) {
	return json.Marshal(s.values)
}

func decodeValues(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	values := make(map[string]any)
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}
