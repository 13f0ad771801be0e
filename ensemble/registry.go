// Package ensemble implements the tree learners, their combination
// strategies, and the trainer that selects among them.
//
// Four candidate regressors are registered by default: a random forest,
// a gradient boosting machine, a regularized second-order boosting
// variant, and a histogram-binned boosting variant. The trainer
// cross-validates each enabled candidate, keeps those within reach of
// the best, weights them by score and prediction diversity, and picks
// the combination strategy with the highest held-out score.
package ensemble

import (
	"gonum.org/v1/gonum/mat"

	kperrors "konutpricer/pkg/errors"
)

// Regressor is a trainable model producing one prediction per row.
type Regressor interface {
	Fit(x *mat.Dense, y []float64) error
	Predict(x *mat.Dense) ([]float64, error)
	// Clone returns an unfitted copy with the same hyperparameters.
	Clone() Regressor
	Name() string
}

// Factory builds an unfitted candidate with the given seed.
type Factory func(seed uint64) Regressor

// Registry maps candidate names to factories. Candidates can be enabled
// or disabled per training run without touching the trainer.
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry returns a registry holding the default candidates.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("rf", func(seed uint64) Regressor { return NewRandomForest(seed) })
	r.Register("gb", func(seed uint64) Regressor { return NewGradientBoosting(seed) })
	r.Register("xgb", func(seed uint64) Regressor { return NewRegularizedBoosting(seed) })
	r.Register("lgb", func(seed uint64) Regressor { return NewHistBoosting(seed) })
	return r
}

// Register adds a factory under a name, keeping registration order.
func (r *Registry) Register(name string, f Factory) {
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
}

// Names returns the registered candidate names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Build instantiates the named candidates. An empty name list means all
// registered candidates. Unknown names are rejected.
func (r *Registry) Build(names []string, seed uint64) ([]Candidate, error) {
	if len(names) == 0 {
		names = r.order
	}
	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, kperrors.NewValueError("Registry.Build", "unknown candidate "+name)
		}
		out = append(out, Candidate{Name: name, Model: f(seed)})
	}
	if len(out) == 0 {
		return nil, kperrors.NewValueError("Registry.Build", "no candidates enabled")
	}
	return out, nil
}

// Candidate pairs a registered name with an unfitted model.
type Candidate struct {
	Name  string
	Model Regressor
}
