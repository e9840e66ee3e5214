package ranking

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ModelFormat tags serialised LinearModel artifacts.
const ModelFormat = "tradelink-linear-ltr/v1"

// ModelMetrics are the offline evaluation results stored with a model.
type ModelMetrics struct {
	NDCG          float64 `json:"ndcg"`
	MRR           float64 `json:"mrr"`
	EvalAtK       int     `json:"eval_at_k"`
	BestIteration int     `json:"best_iteration"`
	TrainQueries  int     `json:"train_queries"`
	ValidQueries  int     `json:"valid_queries"`
	Samples       int     `json:"samples"`
}

// LinearModel is a listwise-trained linear scorer over standardised
// features: bias + Σ w·(x−mean)/scale.
type LinearModel struct {
	Format    string       `json:"format"`
	Version   string       `json:"version"`
	Features  []string     `json:"features"`
	Weights   []float64    `json:"weights"`
	Bias      float64      `json:"bias"`
	Mean      []float64    `json:"mean"`
	Scale     []float64    `json:"scale"`
	TrainedAt time.Time    `json:"trained_at"`
	Metrics   ModelMetrics `json:"metrics"`
}

// Score evaluates the model on v.
func (m *LinearModel) Score(v trade.FeatureVector) float64 {
	s := m.Bias
	for i := range v {
		s += m.Weights[i] * (v[i] - m.Mean[i]) / m.Scale[i]
	}
	return s
}

// Validate checks the artifact shape against the current feature set.
func (m *LinearModel) Validate() error {
	if m.Format != ModelFormat {
		return errors.New(errors.ErrCodeModelCorrupt, fmt.Sprintf("unsupported model format %q", m.Format))
	}
	if len(m.Features) != trade.NumFeatures || len(m.Weights) != trade.NumFeatures ||
		len(m.Mean) != trade.NumFeatures || len(m.Scale) != trade.NumFeatures {
		return errors.New(errors.ErrCodeFeatureMismatch,
			fmt.Sprintf("model has %d features, expected %d", len(m.Weights), trade.NumFeatures))
	}
	for i, name := range m.Features {
		if name != trade.FeatureNames[i] {
			return errors.New(errors.ErrCodeFeatureMismatch,
				fmt.Sprintf("feature %d is %q, expected %q", i, name, trade.FeatureNames[i]))
		}
		if m.Scale[i] <= 0 || math.IsNaN(m.Scale[i]) || math.IsNaN(m.Weights[i]) || math.IsInf(m.Weights[i], 0) {
			return errors.New(errors.ErrCodeModelCorrupt, fmt.Sprintf("invalid coefficients for %q", name))
		}
	}
	return nil
}

// NewLinearModel returns an untrained model with unit scaling.
func NewLinearModel(version string) *LinearModel {
	m := &LinearModel{
		Format:   ModelFormat,
		Version:  version,
		Features: append([]string(nil), trade.FeatureNames[:]...),
		Weights:  make([]float64, trade.NumFeatures),
		Mean:     make([]float64, trade.NumFeatures),
		Scale:    make([]float64, trade.NumFeatures),
	}
	for i := range m.Scale {
		m.Scale[i] = 1
	}
	return m
}

// Marshal serialises the model as indented JSON.
func (m *LinearModel) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalModel parses and validates an artifact.
func UnmarshalModel(data []byte) (*LinearModel, error) {
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelCorrupt, "ranking model is not valid JSON")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

//Personal.AI order the ending
