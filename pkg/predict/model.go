// Package predict serves the quantum-advantage classifier: a logistic
// regression over molecule features, loaded once from a model file.
package predict

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Model is a binary logistic regression with optional standardization.
// Classes[1] is the positive class.
type Model struct {
	ModelType    string    `yaml:"model_type" json:"model_type"`
	Classes      []int     `yaml:"classes" json:"classes"`
	FeatureNames []string  `yaml:"feature_names" json:"feature_names"`
	Coefficients []float64 `yaml:"coefficients" json:"coefficients"`
	Intercept    float64   `yaml:"intercept" json:"intercept"`
	Scaler       *Scaler   `yaml:"scaler,omitempty" json:"scaler,omitempty"`
}

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `yaml:"mean" json:"mean"`
	Scale []float64 `yaml:"scale" json:"scale"`
}

// LoadModel reads a model file. JSON files are accepted as well.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.ModelType == "" {
		m.ModelType = "LogisticRegression"
	}
	if len(m.Classes) == 0 {
		m.Classes = []int{0, 1}
	}
	if len(m.Classes) != 2 {
		return fmt.Errorf("binary classifier needs 2 classes, got %d", len(m.Classes))
	}
	n := len(m.Coefficients)
	if n == 0 {
		return errors.New("no coefficients")
	}
	if len(m.FeatureNames) != 0 && len(m.FeatureNames) != n {
		return fmt.Errorf("%d feature names for %d coefficients", len(m.FeatureNames), n)
	}
	if m.Scaler != nil {
		if len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
			return fmt.Errorf("scaler size does not match %d coefficients", n)
		}
		for i, s := range m.Scaler.Scale {
			if s == 0 {
				return fmt.Errorf("scaler scale[%d] is zero", i)
			}
		}
	}
	return nil
}

// NumFeatures is the input width the model expects.
func (m *Model) NumFeatures() int { return len(m.Coefficients) }

// Predict returns the predicted class and the probability of each class.
func (m *Model) Predict(x []float64) (int, [2]float64, error) {
	if len(x) != m.NumFeatures() {
		return 0, [2]float64{}, fmt.Errorf("X has %d features, but model is expecting %d features", len(x), m.NumFeatures())
	}
	v := make([]float64, len(x))
	copy(v, x)
	if m.Scaler != nil {
		floats.Sub(v, m.Scaler.Mean)
		floats.Div(v, m.Scaler.Scale)
	}
	z := floats.Dot(m.Coefficients, v) + m.Intercept
	p1 := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p1) {
		return 0, [2]float64{}, errors.New("model produced a non-finite score")
	}
	proba := [2]float64{1 - p1, p1}
	if p1 >= 0.5 {
		return m.Classes[1], proba, nil
	}
	return m.Classes[0], proba, nil
}
