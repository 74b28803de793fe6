// Package hook is the boundary between an interception mechanism and the
// extraction core.
package hook

import "sync/atomic"

// State is the interception switch shared by an installer and its
// interceptor. The zero value is uninstalled and paused.
type State struct {
	intercepting atomic.Bool
	installed    atomic.Bool
}

// Enable turns interception on.
func (s *State) Enable() {
	s.intercepting.Store(true)
}

// Disable turns interception off. Installed hooks become pass-through.
func (s *State) Disable() {
	s.intercepting.Store(false)
}

// IsIntercepting reports whether intercepted calls are extracted.
func (s *State) IsIntercepting() bool {
	return s.intercepting.Load()
}

// IsInstalled reports whether the hook is in place.
func (s *State) IsInstalled() bool {
	return s.installed.Load()
}

// markInstalled flips installed and reports whether it changed.
func (s *State) markInstalled(v bool) bool {
	return s.installed.CompareAndSwap(!v, v)
}
