// Package model provides shared state management and persistence helpers
// for the estimators and transformers in this module.
//
// Every fittable component composes a StateManager instead of tracking an
// ad-hoc boolean, so the "must be fitted before use" rule is enforced the
// same way everywhere and survives gob round-trips.
package model

// StateManager tracks whether a component has been fitted and the data
// dimensions it was fitted on. Fields are exported for gob encoding.
type StateManager struct {
	Fitted    bool
	NFeatures int
	NSamples  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether the component has been fitted.
func (s *StateManager) IsFitted() bool {
	return s != nil && s.Fitted
}

// SetFitted marks the component as fitted.
func (s *StateManager) SetFitted() {
	s.Fitted = true
}

// Reset returns the component to its unfitted state.
func (s *StateManager) Reset() {
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions records the training data shape.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}
