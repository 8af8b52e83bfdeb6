package models

// Prediction labels.
const (
	LabelQuantum   = "Quantum"
	LabelClassical = "Classical"
)

// PredictionFeatures is the input vector of the advantage classifier.
type PredictionFeatures struct {
	NumAtoms            int     `json:"num_atoms" validate:"required,gt=0"`
	NumElectrons        int     `json:"num_electrons" validate:"required,gt=0"`
	NumQubits           int     `json:"num_qubits" validate:"required,gt=0"`
	BasisSetSize        int     `json:"basis_set_size" validate:"required,gt=0"`
	MolecularComplexity float64 `json:"molecular_complexity" validate:"required,gt=0,lte=10"`
}

// FeatureNames lists the features in the order the classifier expects.
var FeatureNames = []string{
	"num_atoms",
	"num_electrons",
	"num_qubits",
	"basis_set_size",
	"molecular_complexity",
}

// Vector returns the features in FeatureNames order.
func (f PredictionFeatures) Vector() []float64 {
	return []float64{
		float64(f.NumAtoms),
		float64(f.NumElectrons),
		float64(f.NumQubits),
		float64(f.BasisSetSize),
		f.MolecularComplexity,
	}
}

// Map returns the features keyed by name.
func (f PredictionFeatures) Map() map[string]float64 {
	v := f.Vector()
	out := make(map[string]float64, len(v))
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// PredictionResult is the classifier output.
type PredictionResult struct {
	Prediction string             `json:"prediction"`
	Confidence float64            `json:"confidence"`
	Features   map[string]float64 `json:"features"`
	Status     string             `json:"status"`
}

// ModelInfo describes the loaded classifier.
type ModelInfo struct {
	ModelType string `json:"model_type,omitempty"`
	NFeatures int    `json:"n_features,omitempty"`
	Classes   []int  `json:"classes,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}
