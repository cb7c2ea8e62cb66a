package service

import "sync"

// SessionEvent is one authentication state transition.
type SessionEvent struct {
	Authenticated bool
	UserID        string
	Email         string
}

// SessionState holds the current authentication state explicitly and fans
// out transitions to subscribers. It replaces ambient process-wide flags:
// components that care about auth state get this object injected and
// subscribe to it.
type SessionState struct {
	mu          sync.RWMutex
	current     SessionEvent
	subscribers []chan SessionEvent
}

// NewSessionState starts in the unauthenticated state.
func NewSessionState() *SessionState {
	return &SessionState{}
}

// Current returns the latest state.
func (s *SessionState) Current() SessionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel receiving every subsequent transition. The
// channel is buffered; a subscriber that falls behind loses events rather
// than blocking publishers.
func (s *SessionState) Subscribe() <-chan SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan SessionEvent, 8)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// SetAuthenticated records a login and notifies subscribers.
func (s *SessionState) SetAuthenticated(userID, email string) {
	s.publish(SessionEvent{Authenticated: true, UserID: userID, Email: email})
}

// Clear records a logout and notifies subscribers.
func (s *SessionState) Clear() {
	s.publish(SessionEvent{})
}

func (s *SessionState) publish(event SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = event
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
