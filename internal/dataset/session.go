package dataset

import "sync"

// Roles holds the user-declared semantic roles for the active dataset:
// zero or more numeric KPI columns and at most one date axis column.
type Roles struct {
	KPIColumns []string `json:"kpi_columns"`
	DateColumn string   `json:"date_column,omitempty"`
}

// Session owns the single active dataset for one interactive session
// together with the user's role selections. Each session is independent;
// there is no cross-session shared state.
type Session struct {
	ID string

	mu      sync.Mutex
	dataset *Dataset
	roles   Roles
}

// NewSession returns an empty session.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Dataset returns the active dataset, or nil when none is loaded.
func (s *Session) Dataset() *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// Replace installs a new active dataset and resets the role selections.
// A nil dataset clears the session.
func (s *Session) Replace(d *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = d
	s.roles = Roles{}
}

// Roles returns the current role selections.
func (s *Session) Roles() Roles {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles
}

// SetRoles records the user's KPI and date axis selections.
func (s *Session) SetRoles(r Roles) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = r
}
