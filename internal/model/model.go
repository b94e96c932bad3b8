// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package model decodes trained classifier artifacts exported by the
// training pipeline as flat JSON files. An artifact fully describes one
// classifier: its task, label set, feature encoding and parameters. The
// artifact's "type" field selects the concrete implementation at decode
// time, and with it whether the classifier can emit a probability
// distribution; that capability never changes after decode.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
)

// FormatVersion is the artifact format this decoder understands.
const FormatVersion = 1

// Classifier types accepted in the artifact's "type" field.
const (
	TypeLinear = "linear"
	TypeTree   = "tree"
)

// Decode errors. ErrDecode wraps every structural failure so the registry
// can treat a bad artifact as one condition with one reason string.
var (
	ErrDecode    = errors.New("model artifact decode failed")
	ErrInference = errors.New("inference failed")
)

// Prediction is a single classifier output. Probabilities is either nil
// (the classifier cannot produce a distribution) or a normalized map
// covering every label; there is no partial distribution.
type Prediction struct {
	Label         string
	Probabilities map[string]float64
}

// Classifier predicts a label for one validated record. Implementations are
// immutable after decode and safe for concurrent use.
type Classifier interface {
	// Task is the prediction task this classifier was trained for.
	Task() string

	// Labels returns the label set in training order.
	Labels() []string

	// SupportsProbabilities reports whether Predict fills Probabilities.
	SupportsProbabilities() bool

	// Predict classifies a record that already passed the validation gate.
	// A returned error means inference itself failed, not that the input
	// was invalid.
	Predict(record map[string]any) (Prediction, error)
}

// featureSpec is the encoding of one input feature. Numeric features are
// standardized with the fit-time mean and scale; categorical features are
// one-hot encoded over the fit-time category list.
type featureSpec struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Mean       float64  `json:"mean"`
	Scale      float64  `json:"scale"`
	Categories []string `json:"categories,omitempty"`
}

const (
	kindNumeric     = "numeric"
	kindCategorical = "categorical"
)

// width is the number of columns this feature occupies in the encoded vector.
func (f featureSpec) width() int {
	if f.Kind == kindCategorical {
		return len(f.Categories)
	}
	return 1
}

// treeNode is one node of a decision tree in array form. Leaves have
// Feature == -1 and carry a label index; internal nodes route on
// encoded-vector column Feature against Threshold.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Label     int     `json:"label"`
}

// document is the on-disk artifact shape. Coefficients and Intercepts are
// used by linear artifacts, Nodes by tree artifacts.
type document struct {
	FormatVersion int           `json:"format_version"`
	Task          string        `json:"task"`
	Type          string        `json:"type"`
	Labels        []string      `json:"labels"`
	Features      []featureSpec `json:"features"`
	Coefficients  [][]float64   `json:"coefficients,omitempty"`
	Intercepts    []float64     `json:"intercepts,omitempty"`
	Nodes         []treeNode    `json:"nodes,omitempty"`
}

// LoadFile reads and decodes an artifact from disk.
func LoadFile(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrDecode, path, err)
	}
	return Decode(data)
}

// Decode validates an artifact and builds the classifier its type names.
func Decode(data []byte) (Classifier, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if doc.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format_version %d", ErrDecode, doc.FormatVersion)
	}
	if doc.Task == "" {
		return nil, fmt.Errorf("%w: missing task", ErrDecode)
	}
	if len(doc.Labels) < 2 {
		return nil, fmt.Errorf("%w: need at least two labels, got %d", ErrDecode, len(doc.Labels))
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrDecode)
	}
	for _, f := range doc.Features {
		switch f.Kind {
		case kindNumeric:
		case kindCategorical:
			if len(f.Categories) == 0 {
				return nil, fmt.Errorf("%w: categorical feature %q has no categories", ErrDecode, f.Name)
			}
		default:
			return nil, fmt.Errorf("%w: feature %q has unknown kind %q", ErrDecode, f.Name, f.Kind)
		}
	}

	width := 0
	for _, f := range doc.Features {
		width += f.width()
	}

	switch doc.Type {
	case TypeLinear:
		return newLinear(doc, width)
	case TypeTree:
		return newTree(doc, width)
	default:
		return nil, fmt.Errorf("%w: unknown classifier type %q", ErrDecode, doc.Type)
	}
}

// vectorize encodes a record into the fit-time column order. Missing or
// non-numeric values surface as inference errors; the gate upstream makes
// them unreachable for well-formed deployments, but a schema/artifact skew
// must fail loudly rather than predict on garbage.
func vectorize(features []featureSpec, width int, record map[string]any) ([]float64, error) {
	vec := make([]float64, 0, width)
	for _, f := range features {
		value, ok := record[f.Name]
		if !ok || value == nil {
			if f.Kind == kindCategorical {
				// Absent optional categorical encodes as all zeros.
				vec = append(vec, make([]float64, len(f.Categories))...)
				continue
			}
			// Absent optional numeric encodes as the fit-time mean,
			// i.e. zero after standardization.
			vec = append(vec, 0)
			continue
		}

		switch f.Kind {
		case kindNumeric:
			num, ok := asFloat(value)
			if !ok {
				return nil, fmt.Errorf("%w: feature %q is not numeric", ErrInference, f.Name)
			}
			scale := f.Scale
			if scale == 0 {
				scale = 1
			}
			vec = append(vec, (num-f.Mean)/scale)
		case kindCategorical:
			str, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: feature %q is not a string", ErrInference, f.Name)
			}
			for _, c := range f.Categories {
				if str == c {
					vec = append(vec, 1)
				} else {
					vec = append(vec, 0)
				}
			}
		}
	}
	return vec, nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// LinearClassifier is a multinomial logistic model. It scores each label
// with a linear function of the encoded vector and normalizes the scores
// with a softmax, so it always produces a full probability distribution.
type LinearClassifier struct {
	task         string
	labels       []string
	features     []featureSpec
	width        int
	coefficients [][]float64
	intercepts   []float64
}

func newLinear(doc document, width int) (*LinearClassifier, error) {
	if len(doc.Coefficients) != len(doc.Labels) {
		return nil, fmt.Errorf("%w: %d coefficient rows for %d labels",
			ErrDecode, len(doc.Coefficients), len(doc.Labels))
	}
	if len(doc.Intercepts) != len(doc.Labels) {
		return nil, fmt.Errorf("%w: %d intercepts for %d labels",
			ErrDecode, len(doc.Intercepts), len(doc.Labels))
	}
	for i, row := range doc.Coefficients {
		if len(row) != width {
			return nil, fmt.Errorf("%w: coefficient row %d has %d columns, encoded width is %d",
				ErrDecode, i, len(row), width)
		}
	}

	return &LinearClassifier{
		task:         doc.Task,
		labels:       doc.Labels,
		features:     doc.Features,
		width:        width,
		coefficients: doc.Coefficients,
		intercepts:   doc.Intercepts,
	}, nil
}

func (c *LinearClassifier) Task() string { return c.task }

func (c *LinearClassifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *LinearClassifier) SupportsProbabilities() bool { return true }

// Predict scores every label and returns the argmax with its softmax
// distribution. Non-finite scores fail inference.
func (c *LinearClassifier) Predict(record map[string]any) (Prediction, error) {
	vec, err := vectorize(c.features, c.width, record)
	if err != nil {
		return Prediction{}, err
	}

	scores := make([]float64, len(c.labels))
	for i, row := range c.coefficients {
		s := c.intercepts[i]
		for j, coef := range row {
			s += coef * vec[j]
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return Prediction{}, fmt.Errorf("%w: non-finite score for label %q", ErrInference, c.labels[i])
		}
		scores[i] = s
	}

	probs := softmax(scores)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	dist := make(map[string]float64, len(c.labels))
	for i, label := range c.labels {
		dist[label] = probs[i]
	}

	return Prediction{Label: c.labels[best], Probabilities: dist}, nil
}

// softmax converts scores to a normalized distribution, shifting by the max
// score for numeric stability.
func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// TreeClassifier is a decision tree in flattened array form. It predicts a
// label only; tree artifacts carry no calibrated distribution, so
// SupportsProbabilities is false and Predict leaves Probabilities nil.
type TreeClassifier struct {
	task     string
	labels   []string
	features []featureSpec
	width    int
	nodes    []treeNode
}

func newTree(doc document, width int) (*TreeClassifier, error) {
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("%w: tree artifact has no nodes", ErrDecode)
	}
	for i, n := range doc.Nodes {
		if n.Feature < 0 {
			if n.Label < 0 || n.Label >= len(doc.Labels) {
				return nil, fmt.Errorf("%w: node %d has label index %d out of range", ErrDecode, i, n.Label)
			}
			continue
		}
		if n.Feature >= width {
			return nil, fmt.Errorf("%w: node %d routes on column %d, encoded width is %d",
				ErrDecode, i, n.Feature, width)
		}
		if n.Left < 0 || n.Left >= len(doc.Nodes) || n.Right < 0 || n.Right >= len(doc.Nodes) {
			return nil, fmt.Errorf("%w: node %d has child index out of range", ErrDecode, i)
		}
	}

	return &TreeClassifier{
		task:     doc.Task,
		labels:   doc.Labels,
		features: doc.Features,
		width:    width,
		nodes:    doc.Nodes,
	}, nil
}

func (c *TreeClassifier) Task() string { return c.task }

func (c *TreeClassifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *TreeClassifier) SupportsProbabilities() bool { return false }

// Predict walks the tree from the root. A traversal longer than the node
// count means the artifact encodes a cycle and inference fails.
func (c *TreeClassifier) Predict(record map[string]any) (Prediction, error) {
	vec, err := vectorize(c.features, c.width, record)
	if err != nil {
		return Prediction{}, err
	}

	idx := 0
	for steps := 0; steps <= len(c.nodes); steps++ {
		node := c.nodes[idx]
		if node.Feature < 0 {
			return Prediction{Label: c.labels[node.Label]}, nil
		}
		if vec[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return Prediction{}, fmt.Errorf("%w: tree traversal did not terminate", ErrInference)
}
