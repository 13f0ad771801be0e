package ensemble

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"konutpricer/metrics"
	"konutpricer/modelsel"
	kperrors "konutpricer/pkg/errors"
	"konutpricer/pkg/log"
	"konutpricer/preprocessing"
)

// TrainerConfig controls candidate selection and evaluation.
type TrainerConfig struct {
	// Candidates enables a subset of the registered learners. Empty
	// means all of them.
	Candidates []string
	// TestSize is the holdout fraction, stratified by district.
	TestSize float64
	// CVFolds is the fold count for per-candidate cross-validation.
	CVFolds int
	// ScoreRetention keeps every candidate scoring at least this
	// fraction of the best cross-validation score.
	ScoreRetention float64
	Seed           uint64
}

// DefaultTrainerConfig returns the standard training controls.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		TestSize:       0.2,
		CVFolds:        3,
		ScoreRetention: 0.95,
		Seed:           42,
	}
}

// Trainer cross-validates the enabled candidates, selects and weights the
// strong ones, and picks the best combination strategy on the holdout
// set.
type Trainer struct {
	cfg      TrainerConfig
	registry *Registry
	logger   zerolog.Logger
}

// NewTrainer creates a trainer over the default registry.
func NewTrainer(cfg TrainerConfig) *Trainer {
	return &Trainer{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   log.GetLoggerWithName("ensemble"),
	}
}

// Registry exposes the candidate registry for customization before Train.
func (t *Trainer) Registry() *Registry { return t.registry }

// Result carries the fitted final model plus the artifacts downstream
// stages need: the transformer, the holdout split, and the top candidates
// for bootstrap uncertainty.
type Result struct {
	Model       Regressor
	Transformer *preprocessing.PowerTransformer
	Strategy    Strategy
	Selected    []string
	Weights     []float64
	Report      *Report

	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain []float64
	YTest  []float64

	// TopModels are unfitted clones of the two best candidates with
	// their renormalized weights, used for bootstrap resampling.
	TopModels  []Regressor
	TopWeights []float64
}

// Train runs the full candidate evaluation over the feature matrix.
// districtCodes stratify the holdout split; featureNames label the
// importance ranking in the report.
func (t *Trainer) Train(x *mat.Dense, y []float64, districtCodes []int, featureNames []string) (_ *Result, err error) {
	defer kperrors.Recover(&err, "Trainer.Train")

	nSamples, nFeatures := x.Dims()
	if nSamples == 0 {
		return nil, kperrors.NewModelError("Trainer.Train", "no samples", kperrors.ErrEmptyData)
	}
	if nSamples != len(y) || nSamples != len(districtCodes) {
		return nil, kperrors.NewDimensionError("Trainer.Train", nSamples, len(y), 0)
	}

	trainIdx, testIdx := modelsel.StratifiedSplit(districtCodes, t.cfg.TestSize, t.cfg.Seed)
	xTrainRaw, yTrain := takeRows(x, trainIdx), takeValues(y, trainIdx)
	xTestRaw, yTest := takeRows(x, testIdx), takeValues(y, testIdx)

	transformer := preprocessing.NewPowerTransformer()
	xTrain, err := transformer.FitTransform(xTrainRaw)
	if err != nil {
		return nil, kperrors.Wrap(err, "Trainer.Train")
	}
	xTest, err := transformer.Transform(xTestRaw)
	if err != nil {
		return nil, kperrors.Wrap(err, "Trainer.Train")
	}

	candidates, err := t.registry.Build(t.cfg.Candidates, t.cfg.Seed)
	if err != nil {
		return nil, err
	}

	t.logger.Info().
		Int(log.SamplesKey, nSamples).
		Int(log.FeaturesKey, nFeatures).
		Int("candidates", len(candidates)).
		Uint64(log.SeedKey, t.cfg.Seed).
		Msg("training started")

	scores, testPreds, err := t.evaluateCandidates(candidates, xTrain, yTrain, xTest, yTest)
	if err != nil {
		return nil, err
	}

	selected := t.selectCandidates(candidates, scores)
	weights := diversityWeights(selected, scores, testPreds)

	for i, c := range selected {
		t.logger.Info().
			Str(log.ModelKey, c.Name).
			Float64(log.ScoreKey, scores[c.Name].CVMean).
			Float64("weight", weights[i]).
			Msg("candidate selected")
	}

	strategy, strategyPred := t.pickStrategy(selected, weights, testPreds, yTest)

	final, err := t.fitFinal(selected, weights, strategy, xTrain, yTrain)
	if err != nil {
		return nil, err
	}

	report, err := buildReport(yTest, strategyPred, nFeatures, len(yTrain), strategy)
	if err != nil {
		return nil, err
	}
	report.Candidates = candidateScores(candidates, selected, scores, weights)
	report.TopFeatures = forestImportances(selected, featureNames)

	t.logger.Info().
		Str(log.StrategyKey, string(strategy)).
		Float64(log.ScoreKey, report.R2).
		Float64("mape", report.MAPE).
		Msg("training finished")

	topModels, topWeights := topTwo(selected, weights)
	selectedNames := make([]string, len(selected))
	for i, c := range selected {
		selectedNames[i] = c.Name
	}

	return &Result{
		Model:       final,
		Transformer: transformer,
		Strategy:    strategy,
		Selected:    selectedNames,
		Weights:     weights,
		Report:      report,
		XTrain:      xTrain,
		XTest:       xTest,
		YTrain:      yTrain,
		YTest:       yTest,
		TopModels:   topModels,
		TopWeights:  topWeights,
	}, nil
}

// evaluateCandidates cross-validates every candidate on the training
// partition, then fits it there and predicts the holdout set.
func (t *Trainer) evaluateCandidates(candidates []Candidate, xTrain *mat.Dense, yTrain []float64, xTest *mat.Dense, yTest []float64) (map[string]CandidateScore, map[string][]float64, error) {
	quintiles := modelsel.QuantileLabels(yTrain, 5)
	kf := modelsel.StratifiedKFold{NSplits: t.cfg.CVFolds, Shuffle: true, Seed: t.cfg.Seed}
	folds := kf.Split(quintiles)

	scores := make(map[string]CandidateScore, len(candidates))
	testPreds := make(map[string][]float64, len(candidates))

	for _, c := range candidates {
		var cvScores []float64
		for _, fold := range folds {
			clone := c.Model.Clone()
			if err := clone.Fit(takeRows(xTrain, fold.Train), takeValues(yTrain, fold.Train)); err != nil {
				return nil, nil, kperrors.Wrap(err, "Trainer.evaluateCandidates")
			}
			preds, err := clone.Predict(takeRows(xTrain, fold.Test))
			if err != nil {
				return nil, nil, kperrors.Wrap(err, "Trainer.evaluateCandidates")
			}
			r2, err := metrics.R2Score(takeValues(yTrain, fold.Test), preds)
			if err != nil {
				return nil, nil, kperrors.Wrap(err, "Trainer.evaluateCandidates")
			}
			cvScores = append(cvScores, r2)
		}

		if err := c.Model.Fit(xTrain, yTrain); err != nil {
			return nil, nil, kperrors.Wrap(err, "Trainer.evaluateCandidates")
		}
		preds, err := c.Model.Predict(xTest)
		if err != nil {
			return nil, nil, kperrors.Wrap(err, "Trainer.evaluateCandidates")
		}
		testPreds[c.Name] = preds

		testR2, _ := metrics.R2Score(yTest, preds)
		testMAPE, _ := metrics.MAPE(yTest, preds)
		score := CandidateScore{
			Name:     c.Name,
			CVMean:   stat.Mean(cvScores, nil),
			CVStd:    popStdOf(cvScores),
			TestR2:   testR2,
			TestMAPE: testMAPE,
		}
		if rf, ok := c.Model.(*RandomForest); ok {
			score.OOBScore = rf.OOBScore
		}
		scores[c.Name] = score

		t.logger.Info().
			Str(log.ModelKey, c.Name).
			Float64("cv_mean", score.CVMean).
			Float64("cv_std", score.CVStd).
			Msg("candidate evaluated")
	}
	return scores, testPreds, nil
}

// selectCandidates keeps everything within ScoreRetention of the best CV
// score. If fewer than two pass, the top three by score are kept instead.
func (t *Trainer) selectCandidates(candidates []Candidate, scores map[string]CandidateScore) []Candidate {
	best := math.Inf(-1)
	for _, c := range candidates {
		if s := scores[c.Name].CVMean; s > best {
			best = s
		}
	}
	threshold := best * t.cfg.ScoreRetention

	var selected []Candidate
	for _, c := range candidates {
		if scores[c.Name].CVMean >= threshold {
			selected = append(selected, c)
		}
	}
	if len(selected) >= 2 || len(selected) == len(candidates) {
		return selected
	}

	ranked := append([]Candidate(nil), candidates...)
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if scores[ranked[j].Name].CVMean > scores[ranked[i].Name].CVMean {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	return ranked
}

// diversityWeights weights each selected candidate by its CV score times
// one minus its mean prediction correlation with the other candidates,
// normalized to sum to one.
func diversityWeights(selected []Candidate, scores map[string]CandidateScore, testPreds map[string][]float64) []float64 {
	n := len(selected)
	weights := make([]float64, n)
	if n == 1 {
		weights[0] = 1
		return weights
	}

	total := 0.0
	for i, ci := range selected {
		corrSum := 0.0
		for j, cj := range selected {
			if i == j {
				continue
			}
			corrSum += stat.Correlation(testPreds[ci.Name], testPreds[cj.Name], nil)
		}
		diversity := 1 - corrSum/float64(n-1)
		w := scores[ci.Name].CVMean * diversity
		weights[i] = w
		total += w
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// pickStrategy scores the combination strategies on the holdout set and
// returns the winner with its predictions.
func (t *Trainer) pickStrategy(selected []Candidate, weights []float64, testPreds map[string][]float64, yTest []float64) (Strategy, []float64) {
	preds := make([][]float64, len(selected))
	for i, c := range selected {
		preds[i] = testPreds[c.Name]
	}

	type option struct {
		strategy Strategy
		pred     []float64
	}
	options := []option{
		{StrategyWeightedAverage, WeightedAverage(preds, weights)},
		{StrategyDynamicWeighting, DynamicWeighting(preds, weights)},
	}
	if len(selected) >= 2 {
		meta := NewRidge(1.0)
		metaFeatures := mat.NewDense(len(yTest), len(preds), nil)
		for k, p := range preds {
			for i, v := range p {
				metaFeatures.Set(i, k, v)
			}
		}
		if err := meta.Fit(metaFeatures, yTest); err == nil {
			if p, err := meta.Predict(metaFeatures); err == nil {
				options = append(options, option{StrategyMetaLearner, p})
			}
		}
	}

	best := options[0]
	bestScore := math.Inf(-1)
	for _, opt := range options {
		r2, err := metrics.R2Score(yTest, opt.pred)
		if err != nil {
			continue
		}
		t.logger.Info().
			Str(log.StrategyKey, string(opt.strategy)).
			Float64(log.ScoreKey, r2).
			Msg("strategy scored")
		if r2 > bestScore {
			bestScore = r2
			best = opt
		}
	}
	return best.strategy, best.pred
}

// fitFinal trains the persisted ensemble: stacking when the meta-learner
// strategy won, weighted voting otherwise.
func (t *Trainer) fitFinal(selected []Candidate, weights []float64, strategy Strategy, xTrain *mat.Dense, yTrain []float64) (Regressor, error) {
	members := make([]Member, len(selected))
	for i, c := range selected {
		members[i] = Member{Name: c.Name, Model: c.Model.Clone()}
	}

	var final Regressor
	if strategy == StrategyMetaLearner && len(members) >= 2 {
		final = NewStacking(members, t.cfg.CVFolds, t.cfg.Seed)
	} else {
		final = NewVoting(members, append([]float64(nil), weights...))
	}
	if err := final.Fit(xTrain, yTrain); err != nil {
		return nil, kperrors.Wrap(err, "Trainer.fitFinal")
	}
	return final, nil
}

func candidateScores(candidates, selected []Candidate, scores map[string]CandidateScore, weights []float64) []CandidateScore {
	selectedWeight := make(map[string]float64, len(selected))
	for i, c := range selected {
		selectedWeight[c.Name] = weights[i]
	}
	out := make([]CandidateScore, 0, len(candidates))
	for _, c := range candidates {
		s := scores[c.Name]
		if w, ok := selectedWeight[c.Name]; ok {
			s.Selected = true
			s.Weight = w
		}
		out = append(out, s)
	}
	return out
}

// forestImportances reports the random forest's top features when the
// forest survived selection.
func forestImportances(selected []Candidate, featureNames []string) []FeatureImportance {
	for _, c := range selected {
		if rf, ok := c.Model.(*RandomForest); ok {
			return topImportances(featureNames, rf.FeatureImportances, 15)
		}
	}
	return nil
}

// topTwo returns unfitted clones of the two heaviest-weighted candidates
// in selection order, with their weights renormalized.
func topTwo(selected []Candidate, weights []float64) ([]Regressor, []float64) {
	n := len(selected)
	if n > 2 {
		n = 2
	}
	models := make([]Regressor, n)
	top := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		models[i] = selected[i].Model.Clone()
		top[i] = weights[i]
		total += weights[i]
	}
	for i := range top {
		top[i] /= total
	}
	return models, top
}

// takeRows copies the indexed rows of a matrix into a new Dense.
func takeRows(x *mat.Dense, idx []int) *mat.Dense {
	_, nFeatures := x.Dims()
	out := mat.NewDense(len(idx), nFeatures, nil)
	for i, r := range idx {
		out.SetRow(i, x.RawRowView(r))
	}
	return out
}

// takeValues copies the indexed values of a slice.
func takeValues(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
