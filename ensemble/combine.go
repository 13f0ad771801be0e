package ensemble

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// Strategy names a way of combining the selected candidates.
type Strategy string

const (
	StrategyWeightedAverage  Strategy = "weighted_average"
	StrategyDynamicWeighting Strategy = "dynamic_weighting"
	StrategyMetaLearner      Strategy = "meta_learner"
)

// Member pairs a candidate name with its model inside a combined
// ensemble.
type Member struct {
	Name  string
	Model Regressor
}

// Voting averages its members' predictions with fixed weights. It is the
// persisted form of both the weighted-average and dynamic-weighting
// strategies. Fields are exported for gob encoding.
type Voting struct {
	State   *model.StateManager
	Members []Member
	Weights []float64
}

// NewVoting creates a weighted voting ensemble over unfitted members.
func NewVoting(members []Member, weights []float64) *Voting {
	return &Voting{State: model.NewStateManager(), Members: members, Weights: weights}
}

// Name implements Regressor.
func (v *Voting) Name() string { return "voting" }

// Clone returns an unfitted copy, cloning every member.
func (v *Voting) Clone() Regressor {
	members := make([]Member, len(v.Members))
	for i, m := range v.Members {
		members[i] = Member{Name: m.Name, Model: m.Model.Clone()}
	}
	weights := append([]float64(nil), v.Weights...)
	return NewVoting(members, weights)
}

// Fit trains every member on the full training set.
func (v *Voting) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "Voting.Fit")
	if len(v.Members) == 0 {
		return kperrors.NewValueError("Voting.Fit", "no members")
	}
	if len(v.Members) != len(v.Weights) {
		return kperrors.NewDimensionError("Voting.Fit", len(v.Members), len(v.Weights), 0)
	}
	for _, m := range v.Members {
		if err := m.Model.Fit(x, y); err != nil {
			return kperrors.Wrap(err, "Voting.Fit")
		}
	}
	nSamples, nFeatures := x.Dims()
	v.State.SetFitted()
	v.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// Predict returns the weighted average of the members' predictions.
func (v *Voting) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "Voting.Predict")
	if !v.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("Voting", "Predict")
	}

	nSamples, _ := x.Dims()
	out := make([]float64, nSamples)
	totalWeight := 0.0
	for k, m := range v.Members {
		preds, err := m.Model.Predict(x)
		if err != nil {
			return nil, kperrors.Wrap(err, "Voting.Predict")
		}
		w := v.Weights[k]
		totalWeight += w
		for i, p := range preds {
			out[i] += w * p
		}
	}
	for i := range out {
		out[i] /= totalWeight
	}
	return out, nil
}

// Stacking feeds its members' out-of-fold predictions to a ridge
// meta-learner, then refits the members on the full training set. Fields
// are exported for gob encoding.
type Stacking struct {
	State   *model.StateManager
	Members []Member
	Meta    *Ridge
	CVFolds int
	Seed    uint64
}

// NewStacking creates a stacking ensemble over unfitted members.
func NewStacking(members []Member, folds int, seed uint64) *Stacking {
	return &Stacking{
		State:   model.NewStateManager(),
		Members: members,
		Meta:    NewRidge(1.0),
		CVFolds: folds,
		Seed:    seed,
	}
}

// Name implements Regressor.
func (s *Stacking) Name() string { return "stacking" }

// Clone returns an unfitted copy, cloning every member.
func (s *Stacking) Clone() Regressor {
	members := make([]Member, len(s.Members))
	for i, m := range s.Members {
		members[i] = Member{Name: m.Name, Model: m.Model.Clone()}
	}
	return NewStacking(members, s.CVFolds, s.Seed)
}

// Fit builds the meta-features out of fold so the meta-learner never sees
// a member's prediction on a row that member trained on.
func (s *Stacking) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "Stacking.Fit")
	if len(s.Members) < 2 {
		return kperrors.NewValueError("Stacking.Fit", "stacking needs at least two members")
	}

	nSamples, nFeatures := x.Dims()
	metaFeatures := mat.NewDense(nSamples, len(s.Members), nil)

	for _, fold := range kfold(nSamples, s.CVFolds, s.Seed) {
		xTrain, yTrain := takeRows(x, fold.train), takeValues(y, fold.train)
		xVal := takeRows(x, fold.test)
		for k, m := range s.Members {
			clone := m.Model.Clone()
			if err := clone.Fit(xTrain, yTrain); err != nil {
				return kperrors.Wrap(err, "Stacking.Fit")
			}
			preds, err := clone.Predict(xVal)
			if err != nil {
				return kperrors.Wrap(err, "Stacking.Fit")
			}
			for i, row := range fold.test {
				metaFeatures.Set(row, k, preds[i])
			}
		}
	}

	if err := s.Meta.Fit(metaFeatures, y); err != nil {
		return kperrors.Wrap(err, "Stacking.Fit")
	}
	for _, m := range s.Members {
		if err := m.Model.Fit(x, y); err != nil {
			return kperrors.Wrap(err, "Stacking.Fit")
		}
	}

	s.State.SetFitted()
	s.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// Predict runs the members and blends them with the meta-learner.
func (s *Stacking) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "Stacking.Predict")
	if !s.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("Stacking", "Predict")
	}

	nSamples, _ := x.Dims()
	metaFeatures := mat.NewDense(nSamples, len(s.Members), nil)
	for k, m := range s.Members {
		preds, err := m.Model.Predict(x)
		if err != nil {
			return nil, kperrors.Wrap(err, "Stacking.Predict")
		}
		for i, p := range preds {
			metaFeatures.Set(i, k, p)
		}
	}
	return s.Meta.Predict(metaFeatures)
}

// plainFold is one train/test partition of a shuffled k-fold.
type plainFold struct {
	train []int
	test  []int
}

func kfold(nSamples, folds int, seed uint64) []plainFold {
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(nSamples)

	out := make([]plainFold, folds)
	for i, p := range perm {
		out[i%folds].test = append(out[i%folds].test, p)
	}
	for f := range out {
		for g, fold := range out {
			if g != f {
				out[f].train = append(out[f].train, fold.test...)
			}
		}
	}
	return out
}

// WeightedAverage combines per-model predictions with fixed weights.
func WeightedAverage(preds [][]float64, weights []float64) []float64 {
	n := len(preds[0])
	out := make([]float64, n)
	total := 0.0
	for k, p := range preds {
		total += weights[k]
		for i, v := range p {
			out[i] += weights[k] * v
		}
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// DynamicWeighting uses the learned weights where the models agree and
// falls back to equal weights where they diverge. A row counts as
// uncertain when the spread of its per-model predictions exceeds half the
// mean of the models' own prediction spreads.
func DynamicWeighting(preds [][]float64, weights []float64) []float64 {
	nModels := len(preds)
	n := len(preds[0])

	meanModelStd := 0.0
	for _, p := range preds {
		meanModelStd += popStdOf(p)
	}
	meanModelStd /= float64(nModels)

	equal := make([]float64, nModels)
	for k := range equal {
		equal[k] = 1.0 / float64(nModels)
	}

	rowPreds := make([]float64, nModels)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		for k, p := range preds {
			rowPreds[k] = p[i]
		}
		w := weights
		if popStdOf(rowPreds) >= meanModelStd*0.5 {
			w = equal
		}
		sum, total := 0.0, 0.0
		for k, v := range rowPreds {
			sum += w[k] * v
			total += w[k]
		}
		out[i] = sum / total
	}
	return out
}

func popStdOf(values []float64) float64 {
	m := stat.Mean(values, nil)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
