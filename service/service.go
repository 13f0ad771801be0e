// Package service wires the pipeline end to end: training runs the
// cleaner, feature synthesis, encoding, ensemble selection and bootstrap
// uncertainty, then persists the bundle; inference loads the bundle and
// answers price queries with confidence intervals and reliability
// labels.
package service

import (
	"time"

	"github.com/rs/zerolog"

	"konutpricer/bundle"
	"konutpricer/cleaning"
	"konutpricer/dataset"
	"konutpricer/encoding"
	"konutpricer/ensemble"
	"konutpricer/features"
	"konutpricer/frame"
	"konutpricer/modelsel"
	kperrors "konutpricer/pkg/errors"
	"konutpricer/pkg/log"
	"konutpricer/preprocessing"
	"konutpricer/uncertainty"
)

// Config controls a training run.
type Config struct {
	// Candidates enables a subset of the registered learners. Empty
	// means all.
	Candidates []string
	// EncodingFolds is the fold count for out-of-fold target encoding.
	EncodingFolds int
	Trainer       ensemble.TrainerConfig
	Uncertainty   uncertainty.Config
	Seed          uint64
}

// DefaultConfig returns the standard pipeline controls with one seed
// threaded through every stage.
func DefaultConfig() Config {
	seed := uint64(42)
	trainer := ensemble.DefaultTrainerConfig()
	trainer.Seed = seed
	uc := uncertainty.DefaultConfig()
	uc.Seed = seed
	return Config{
		EncodingFolds: 5,
		Trainer:       trainer,
		Uncertainty:   uc,
		Seed:          seed,
	}
}

// Service trains, persists and serves price models through a bundle
// repository.
type Service struct {
	cfg    Config
	repo   bundle.Repository
	b      *bundle.Bundle
	oneHot *preprocessing.OneHotEncoder
	logger zerolog.Logger
}

// New creates a service over a bundle repository.
func New(cfg Config, repo bundle.Repository) *Service {
	cfg.Trainer.Candidates = cfg.Candidates
	return &Service{
		cfg:    cfg,
		repo:   repo,
		logger: log.GetLoggerWithName("service"),
	}
}

// Train runs the full pipeline on the dataset at path and persists the
// resulting bundle.
func (s *Service) Train(path string) (_ *bundle.Bundle, err error) {
	defer kperrors.Recover(&err, "Service.Train")
	started := time.Now()

	raw, err := dataset.Load(path)
	if err != nil {
		return nil, kperrors.Wrap(err, "Service.Train")
	}
	table, err := cleaning.NewCleaner().Clean(raw)
	if err != nil {
		return nil, kperrors.Wrap(err, "Service.Train")
	}
	b, err := s.TrainTable(table)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64(log.DurationKey, time.Since(started).Milliseconds()).
		Int(log.RowsKey, len(table.Rows)).
		Msg("training pipeline finished")
	return b, nil
}

// TrainTable trains on an already cleaned table and persists the bundle.
func (s *Service) TrainTable(table *cleaning.Table) (_ *bundle.Bundle, err error) {
	defer kperrors.Recover(&err, "Service.TrainTable")

	x, schema, err := s.assembleTraining(table)
	if err != nil {
		return nil, err
	}
	y := table.Prices()

	districts := make([]string, len(table.Rows))
	for i, r := range table.Rows {
		districts[i] = r.District
	}
	codes := modelsel.Encode(districts)

	trainer := ensemble.NewTrainer(s.cfg.Trainer)
	result, err := trainer.Train(x.Matrix(), y, codes, schema)
	if err != nil {
		return nil, err
	}

	summary, err := uncertainty.NewEstimator(s.cfg.Uncertainty).Estimate(
		result.TopModels, result.TopWeights,
		result.XTrain, result.YTrain, result.XTest,
	)
	if err != nil {
		return nil, err
	}

	b := s.assembleBundle(table, schema, result, summary)
	if err := s.repo.Save(b); err != nil {
		return nil, kperrors.Wrap(err, "Service.TrainTable")
	}
	s.b = b
	return b, nil
}

// oneHotColumns are the categorical inputs encoded as indicator columns.
var oneHotColumns = []string{"district", "neighborhood"}

// assembleTraining builds the full training frame: synthesized numeric
// features, out-of-fold target statistics, and one-hot location columns.
// The one-hot encoder is fitted as a side effect and reused at inference
// through the bundle.
func (s *Service) assembleTraining(table *cleaning.Table) (*frame.Frame, []string, error) {
	inputs := make([]features.Input, len(table.Rows))
	cats := make([][]string, len(table.Rows))
	for i, r := range table.Rows {
		inputs[i] = features.FromRow(r)
		cats[i] = []string{r.District, r.Neighborhood}
	}

	numFrame, err := features.Synthesize(inputs)
	if err != nil {
		return nil, nil, err
	}

	encoder := encoding.NewEncoder(s.cfg.EncodingFolds, s.cfg.Seed)
	targetFrame, err := encoder.FitTransform(table.Rows)
	if err != nil {
		return nil, nil, err
	}

	s.oneHot = preprocessing.NewOneHotEncoder(oneHotColumns, true)
	catFrame, err := s.oneHot.FitTransform(cats)
	if err != nil {
		return nil, nil, err
	}

	combined, err := frame.Concat(numFrame, targetFrame, catFrame)
	if err != nil {
		return nil, nil, err
	}
	return combined, combined.Names(), nil
}

// assembleBundle captures everything inference needs from the run.
func (s *Service) assembleBundle(table *cleaning.Table, schema []string, result *ensemble.Result, summary *uncertainty.Summary) *bundle.Bundle {
	y := table.Prices()

	pricePerM2 := make(map[string]float64, len(table.DistrictStats))
	counts := make(map[string]int, len(table.DistrictStats))
	for _, r := range table.Rows {
		pricePerM2[r.District] += r.Price / r.Area
		counts[r.District]++
	}
	for d, total := range pricePerM2 {
		pricePerM2[d] = total / float64(counts[d])
	}

	return &bundle.Bundle{
		Model:       result.Model,
		Strategy:    result.Strategy,
		Selected:    result.Selected,
		Weights:     result.Weights,
		Transformer: result.Transformer,

		FeatureSchema: schema,

		DistrictStats:      table.DistrictStats,
		NeighborhoodStats:  table.NeighborhoodStats,
		DistrictIndex:      table.DistrictIndex,
		NeighborhoodIndex:  table.NeighborhoodIndex,
		Districts:          table.Districts(),
		Neighborhoods:      table.NeighborhoodsByDistrict(),
		DistrictTarget:     encoding.TrainedStats(table.Rows, encoding.DistrictColumn()),
		NeighborhoodTarget: encoding.TrainedStats(table.Rows, encoding.NeighborhoodColumn()),
		TargetGlobal:       encoding.GlobalStats(table.Rows),

		OneHot: s.oneHot,

		DistrictPricePerM2: pricePerM2,

		PriceRange:      bundle.NewPriceRange(y),
		MeanUncertainty: summary.MeanUncertainty,
		ResidualStd:     result.Report.ResidualStd,

		Report: result.Report,
		Metadata: bundle.Metadata{
			CreatedAt: time.Now().UTC(),
			Seed:      s.cfg.Seed,
			NTrain:    result.Report.NTrain,
			NTest:     result.Report.NTest,
			NFeatures: result.Report.NFeatures,
		},
	}
}

// Bundle returns the loaded bundle, reading it from the repository on
// first use.
func (s *Service) Bundle() (*bundle.Bundle, error) {
	if s.b != nil {
		return s.b, nil
	}
	b, err := s.repo.Load()
	if err != nil {
		return nil, err
	}
	s.b = b
	return b, nil
}
