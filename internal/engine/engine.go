package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Engine runs the readmission pipeline: normalize, score severity, score
// probability, calibrate, then plan follow-up and staffing. It holds no
// per-request state; concurrent calls are independent.
type Engine struct {
	model    *ModelScorer
	baseline BaselineProvider
	logger   zerolog.Logger

	// Normalizer builds feature vectors.
	Normalizer *Normalizer
	// Severity scores clinical severity.
	Severity SeverityScorer
	// Fallback replaces the model when it is absent or fails.
	Fallback ProbabilityScorer
	// Calibrator blends probability with severity.
	Calibrator *Calibrator
	// Planner maps bands to follow-up plans.
	Planner *Planner
	// Simulator projects staffing.
	Simulator *Simulator
	// Aggregator assembles the report snapshot.
	Aggregator *Aggregator
}

// New creates an Engine. model and baseline may be nil: without a model every
// assessment uses the heuristic mode, and without a baseline staffing is
// synthetic.
func New(model Model, baseline BaselineProvider, logger zerolog.Logger) *Engine {
	return &Engine{
		model:      NewModelScorer(model),
		baseline:   baseline,
		logger:     logger.With().Str("component", "engine").Logger(),
		Normalizer: NewNormalizer(),
		Severity:   NewRuleSeverity(),
		Fallback:   NewHeuristicScorer(nil),
		Calibrator: NewCalibrator(),
		Planner:    NewPlanner(),
		Simulator:  NewSimulator(),
		Aggregator: NewAggregator(time.Now),
	}
}

// HasModel reports whether a model is configured.
func (e *Engine) HasModel() bool {
	return e.model != nil && e.model.model != nil
}

// Assess scores one patient record and returns the full snapshot. It only
// fails when ctx is cancelled; model and field-level problems degrade instead.
func (e *Engine) Assess(ctx context.Context, record PatientRecord) (ReportData, error) {
	if err := ctx.Err(); err != nil {
		return ReportData{}, err
	}
	if record == nil {
		record = PatientRecord{}
	}

	condition := ResolveCondition(record.Text(FieldProblemType, ""))
	order := e.featureOrder(ctx, condition)
	features := e.Normalizer.Normalize(record, condition, order)
	severity := e.scoreSeverity(record, condition)

	in := ScoreInput{Record: record, Condition: condition, Features: features}
	probability, mode, reason, err := e.scoreProbability(ctx, in)
	if err != nil {
		return ReportData{}, err
	}

	adjusted := e.Calibrator.Calibrate(probability, severity)
	band := Classify(adjusted)
	plan := e.Planner.Plan(band, condition)

	simDate, _ := ParseDate(record.Text(FieldSimulationDate, ""))
	staffing := e.Simulator.Single(adjusted, simDate, record.Text(FieldHospitalUnit, ""), e.baselineRows())

	report := e.Aggregator.Aggregate(record, condition, features, severity, Score{
		ModelProbability: probability,
		Mode:             mode,
		AdjustedRisk:     adjusted,
		Band:             band,
	}, plan, staffing)
	report.FallbackReason = reason
	return report, nil
}

// scoreSeverity runs the configured scorer; a panicking scorer yields 0.
func (e *Engine) scoreSeverity(record PatientRecord, condition ConditionType) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("condition", string(condition)).
				Msg("severity scorer failed, using 0")
			score = 0
		}
	}()
	return e.Severity.ScoreSeverity(record, condition)
}

// SimulateCohort projects staffing for a set of risk labels.
func (e *Engine) SimulateCohort(labels []string) CohortEstimate {
	bands := make([]RiskBand, len(labels))
	for i, l := range labels {
		b, ok := ParseRiskBand(l)
		if !ok {
			b = BandLow
		}
		bands[i] = b
	}
	return e.Simulator.Cohort(bands)
}

func (e *Engine) featureOrder(ctx context.Context, condition ConditionType) []string {
	if !e.HasModel() {
		return nil
	}
	names, err := e.model.FeatureOrder(ctx, condition)
	if err != nil {
		if errors.Is(err, ErrFeatureNamesUnavailable) {
			e.logger.Debug().Str("condition", string(condition)).Msg("model exposes no feature names, using default schema")
		} else {
			e.logger.Warn().Err(err).Str("condition", string(condition)).
				Msg("model feature names lookup failed, using default schema")
		}
		return nil
	}
	return names
}

func (e *Engine) scoreProbability(ctx context.Context, in ScoreInput) (float64, CalibrationMode, string, error) {
	if e.HasModel() {
		p, err := e.model.ScoreModel(ctx, in)
		if err == nil {
			return p, ModeModel, "", nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, "", "", ctxErr
		}
		e.logger.Warn().Err(err).Str("condition", string(in.Condition)).
			Msg("model prediction failed, falling back to heuristic")
		p = e.fallback(ctx, in)
		return p, ModeHeuristic, err.Error(), nil
	}
	return e.fallback(ctx, in), ModeHeuristic, "", nil
}

func (e *Engine) fallback(ctx context.Context, in ScoreInput) float64 {
	p, err := e.Fallback.ScoreModel(ctx, in)
	if err != nil {
		e.logger.Error().Err(err).Msg("heuristic scorer failed")
		return HeuristicFloor
	}
	return clamp(p, 0, 1)
}

func (e *Engine) baselineRows() []BaselineRow {
	if e.baseline == nil {
		return nil
	}
	return e.baseline.Rows()
}
