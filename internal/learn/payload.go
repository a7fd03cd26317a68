package learn

import (
	"encoding/json"
	"math"

	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/google/uuid"
)

// Value is a float64 that encodes NaN and infinities as JSON null.
type Value float64

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler; null decodes as NaN.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

func toValues(fs []float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = Value(f)
	}
	return out
}

func fromValues(vs []Value) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

// QueriedObject is an object sent for spectroscopic follow-up.
type QueriedObject struct {
	ID       string  `json:"id"`
	SNType   string  `json:"type"`
	SNCode   int     `json:"code"`
	Redshift Value   `json:"redshift"`
	Features []Value `json:"features"`
}

// IterationPayload is the payload of events.TypeIteration.
type IterationPayload struct {
	Loop         int             `json:"loop"`
	FeatureNames []string        `json:"feature_names"`
	Epoch        int             `json:"epoch"`
	MetricNames  []string        `json:"metric_names"`
	MetricValues []Value         `json:"metric_values"`
	NTrain       int             `json:"n_train"`
	NTest        int             `json:"n_test"`
	Queried      []QueriedObject `json:"queried"`
}

// NewIterationPayload converts it for emission. featureNames label the
// features of the queried objects.
func NewIterationPayload(it database.Iteration, featureNames []string) IterationPayload {
	p := IterationPayload{
		Loop:         it.Loop,
		FeatureNames: featureNames,
		Epoch:        it.Epoch,
		MetricNames:  it.MetricNames,
		MetricValues: toValues(it.MetricValues),
		NTrain:       it.NTrain,
		NTest:        it.NTest,
		Queried:      make([]QueriedObject, 0, len(it.Queried)),
	}
	for _, row := range it.Queried {
		p.Queried = append(p.Queried, QueriedObject{
			ID:       row.ID,
			SNType:   row.SNType,
			SNCode:   row.SNCode,
			Redshift: Value(row.Redshift),
			Features: toValues(row.Features),
		})
	}
	return p
}

// Iteration converts p back into the form written to result files.
func (p IterationPayload) Iteration() database.Iteration {
	it := database.Iteration{
		Loop:         p.Loop,
		Epoch:        p.Epoch,
		MetricNames:  p.MetricNames,
		MetricValues: fromValues(p.MetricValues),
		NTrain:       p.NTrain,
		NTest:        p.NTest,
	}
	for _, q := range p.Queried {
		it.QueriedIDs = append(it.QueriedIDs, q.ID)
		it.Queried = append(it.Queried, domain.FeatureRow{
			ID:       q.ID,
			SNType:   q.SNType,
			SNCode:   q.SNCode,
			Redshift: float64(q.Redshift),
			Features: fromValues(q.Features),
		})
	}
	return it
}

// MetricRecords flattens the metrics of p for storage.
func (p IterationPayload) MetricRecords(runID uuid.UUID) []domain.MetricRecord {
	out := make([]domain.MetricRecord, 0, len(p.MetricValues))
	for i, name := range p.MetricNames {
		if i >= len(p.MetricValues) {
			break
		}
		v := float64(p.MetricValues[i])
		if math.IsNaN(v) {
			continue
		}
		out = append(out, domain.MetricRecord{RunID: runID, Loop: p.Loop, Epoch: p.Epoch, Name: name, Value: v})
	}
	return out
}

// QueryRecords flattens the queried objects of p for storage.
func (p IterationPayload) QueryRecords(runID uuid.UUID) []domain.QueryRecord {
	out := make([]domain.QueryRecord, 0, len(p.Queried))
	for _, q := range p.Queried {
		out = append(out, domain.QueryRecord{
			RunID:    runID,
			Loop:     p.Loop,
			Epoch:    p.Epoch,
			ObjectID: q.ID,
			SNType:   q.SNType,
			Redshift: float64(q.Redshift),
		})
	}
	return out
}

// FinishedPayload is the payload of events.TypeFinished.
type FinishedPayload struct {
	Stage      string   `json:"stage"`
	Iterations int      `json:"iterations"`
	NQueried   int      `json:"n_queried"`
	Exhausted  bool     `json:"exhausted"`
	Error      string   `json:"error,omitempty"`
	QueriedIDs []string `json:"queried_ids"`
}
