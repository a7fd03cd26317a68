package database

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/cointoolbox/resspect/internal/classifier"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/features"
	"github.com/cointoolbox/resspect/internal/metrics"
	"github.com/cointoolbox/resspect/internal/query"
)

// InitialOriginal selects the training sample from the orig_sample column.
const InitialOriginal = "original"

// Errors returned by DataBase operations.
var (
	ErrNoFeatures       = errors.New("no features loaded")
	ErrNotClassified    = errors.New("test sample has not been classified")
	ErrNotEnoughObjects = errors.New("not enough objects for the requested training sample")
	ErrBadInitial       = errors.New("initial training must be 'original' or a positive integer")
	ErrBadIndex         = errors.New("query index out of range")
)

// SampleOptions controls how BuildSamples splits the feature table.
type SampleOptions struct {
	// Initial is "original" or the number of randomly drawn training
	// objects, half of which are type Ia.
	Initial string
	// Queryable restricts the query pool to rows flagged queryable.
	Queryable bool
	// Canonical restricts the query pool to the canonical sample, i.e. rows
	// whose orig_sample is "queryable".
	Canonical bool
}

// DataBase is the working state of an active learning run.
type DataBase struct {
	FeatureNames []string
	// All holds the loaded feature table.
	All   *domain.FeatureTable
	Train []domain.FeatureRow
	Test  []domain.FeatureRow

	opts SampleOptions
	rng  *rand.Rand

	predicted []int
	proba     [][]float64
	iaColumn  int

	metricValues []float64
	lastQueried  []domain.FeatureRow
	queried      []domain.FeatureRow
}

// New returns an empty DataBase whose random draws are seeded by seed.
func New(seed int64) *DataBase {
	return &DataBase{rng: rand.New(rand.NewPCG(uint64(seed), 0xda7a)), iaColumn: -1}
}

// LoadFeatures reads the feature table at path.
func (db *DataBase) LoadFeatures(path string) error {
	tbl, err := features.ReadFile(path)
	if err != nil {
		return err
	}
	db.SetFeatures(tbl)
	return nil
}

// SetFeatures replaces the loaded feature table.
func (db *DataBase) SetFeatures(tbl *domain.FeatureTable) {
	db.All = tbl
	db.FeatureNames = tbl.FeatureNames
}

// BuildSamples splits the loaded table into training and test samples.
func (db *DataBase) BuildSamples(opts SampleOptions) error {
	if db.All == nil || len(db.All.Rows) == 0 {
		return ErrNoFeatures
	}
	db.opts = opts
	db.Train, db.Test = nil, nil
	db.resetPredictions()

	if opts.Initial == "" || opts.Initial == InitialOriginal {
		for _, row := range db.All.Rows {
			if row.OrigSample == domain.SampleTrain {
				db.Train = append(db.Train, row)
			} else {
				db.Test = append(db.Test, row)
			}
		}
		return nil
	}

	n, err := strconv.Atoi(opts.Initial)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrBadInitial, opts.Initial)
	}
	train, err := db.drawStratified(n)
	if err != nil {
		return err
	}
	for i, row := range db.All.Rows {
		if train[i] {
			db.Train = append(db.Train, row)
		} else {
			db.Test = append(db.Test, row)
		}
	}
	return nil
}

// drawStratified picks n rows at random, n/2 of them type Ia.
func (db *DataBase) drawStratified(n int) (map[int]bool, error) {
	var ia, other []int
	for i := range db.All.Rows {
		if db.All.Rows[i].IsIa() {
			ia = append(ia, i)
		} else {
			other = append(other, i)
		}
	}
	nIa := n / 2
	nOther := n - nIa
	if nIa > len(ia) || nOther > len(other) {
		return nil, fmt.Errorf("%w: need %d Ia and %d others, have %d and %d",
			ErrNotEnoughObjects, nIa, nOther, len(ia), len(other))
	}

	chosen := make(map[int]bool, n)
	for _, group := range []struct {
		idx []int
		n   int
	}{{ia, nIa}, {other, nOther}} {
		perm := db.rng.Perm(len(group.idx))
		for _, p := range perm[:group.n] {
			chosen[group.idx[p]] = true
		}
	}
	return chosen, nil
}

func (db *DataBase) resetPredictions() {
	db.predicted = nil
	db.proba = nil
	db.iaColumn = -1
	db.metricValues = nil
}

// Labels encodes rows as 1 for type Ia and 0 otherwise.
func Labels(rows []domain.FeatureRow) []int {
	y := make([]int, len(rows))
	for i := range rows {
		if rows[i].IsIa() {
			y[i] = 1
		}
	}
	return y
}

// Matrix returns the feature vectors of rows.
func Matrix(rows []domain.FeatureRow) [][]float64 {
	X := make([][]float64, len(rows))
	for i := range rows {
		X[i] = rows[i].Features
	}
	return X
}

// Classify trains c on the training sample and predicts the test sample.
func (db *DataBase) Classify(c classifier.Classifier) error {
	db.resetPredictions()
	if err := c.Fit(Matrix(db.Train), Labels(db.Train)); err != nil {
		return fmt.Errorf("training classifier: %w", err)
	}
	if len(db.Test) == 0 {
		db.predicted = []int{}
		db.proba = [][]float64{}
		db.iaColumn = classifier.ClassColumn(c, 1)
		return nil
	}
	proba, err := c.PredictProba(Matrix(db.Test))
	if err != nil {
		return fmt.Errorf("predicting test sample: %w", err)
	}
	db.proba = proba
	db.predicted = classifier.MostProbable(c.Classes(), proba)
	db.iaColumn = classifier.ClassColumn(c, 1)
	return nil
}

// Predicted returns the latest test sample predictions.
func (db *DataBase) Predicted() []int { return db.predicted }

// Proba returns the latest test sample class probabilities.
func (db *DataBase) Proba() [][]float64 { return db.proba }

// EvaluateClassification computes the SNPCC metrics of the latest
// predictions.
func (db *DataBase) EvaluateClassification() ([]string, []float64, error) {
	if db.predicted == nil {
		return nil, nil, ErrNotClassified
	}
	names, values, err := metrics.GetSNPCCMetric(db.predicted, Labels(db.Test))
	if err != nil {
		return nil, nil, err
	}
	db.metricValues = values
	return names, values, nil
}

// Pool returns the indexes of test objects that may be queried.
func (db *DataBase) Pool() []int {
	pool := make([]int, 0, len(db.Test))
	for i := range db.Test {
		row := &db.Test[i]
		if db.opts.Queryable && !row.Queryable {
			continue
		}
		if db.opts.Canonical && row.OrigSample != domain.SampleQueryable {
			continue
		}
		pool = append(pool, i)
	}
	return pool
}

// MakeQuery selects up to batch test indexes with the named strategy.
func (db *DataBase) MakeQuery(strategy string, batch int) ([]int, error) {
	s, err := query.Lookup(strategy)
	if err != nil {
		return nil, err
	}
	if db.proba == nil {
		return nil, ErrNotClassified
	}
	return s(query.Input{
		Proba:    db.proba,
		IaColumn: db.iaColumn,
		Pool:     db.Pool(),
		Batch:    batch,
		Rand:     db.rng,
	}), nil
}

// UpdateSamples moves the test objects at indexes to the training sample
// and records them as queried. Predictions are invalidated.
func (db *DataBase) UpdateSamples(indexes []int) error {
	for _, i := range indexes {
		if i < 0 || i >= len(db.Test) {
			return fmt.Errorf("%w: %d", ErrBadIndex, i)
		}
	}
	db.lastQueried = make([]domain.FeatureRow, 0, len(indexes))
	for _, i := range indexes {
		db.lastQueried = append(db.lastQueried, db.Test[i])
	}
	db.Train = append(db.Train, db.lastQueried...)
	db.queried = append(db.queried, db.lastQueried...)

	drop := slices.Clone(indexes)
	slices.Sort(drop)
	drop = slices.Compact(drop)
	for k := len(drop) - 1; k >= 0; k-- {
		db.Test = slices.Delete(db.Test, drop[k], drop[k]+1)
	}
	db.predicted = nil
	db.proba = nil
	return nil
}

// LastQueried returns the objects moved by the latest UpdateSamples.
func (db *DataBase) LastQueried() []domain.FeatureRow { return db.lastQueried }

// Queried returns every object queried so far in query order.
func (db *DataBase) Queried() []domain.FeatureRow { return db.queried }

// Iteration summarises the current state after a query for loop and epoch.
func (db *DataBase) Iteration(loop, epoch int) Iteration {
	ids := make([]string, len(db.lastQueried))
	for i := range db.lastQueried {
		ids[i] = db.lastQueried[i].ID
	}
	return Iteration{
		Loop:         loop,
		Epoch:        epoch,
		MetricNames:  metrics.Names(),
		MetricValues: slices.Clone(db.metricValues),
		NTrain:       len(db.Train),
		NTest:        len(db.Test),
		QueriedIDs:   ids,
		Queried:      slices.Clone(db.lastQueried),
	}
}

// Refresh replaces the loaded table with tbl while keeping the current
// training objects. Training rows are re-read from tbl when present and
// kept unchanged otherwise; every other row of tbl becomes the test sample.
// Feature dimensions of tbl must match the current table.
func (db *DataBase) Refresh(tbl *domain.FeatureTable) error {
	if db.All != nil && len(tbl.FeatureNames) != len(db.FeatureNames) {
		return fmt.Errorf("%w: %d features, expected %d", domain.ErrValidation, len(tbl.FeatureNames), len(db.FeatureNames))
	}
	idx := tbl.Index()
	inTrain := make(map[string]bool, len(db.Train))
	for i := range db.Train {
		id := db.Train[i].ID
		inTrain[id] = true
		if j, ok := idx[id]; ok {
			row := tbl.Rows[j]
			row.OrigSample = db.Train[i].OrigSample
			db.Train[i] = row
		}
	}
	db.Test = db.Test[:0]
	for _, row := range tbl.Rows {
		if !inTrain[row.ID] {
			db.Test = append(db.Test, row)
		}
	}
	db.SetFeatures(tbl)
	db.resetPredictions()
	db.lastQueried = nil
	return nil
}

// SeedTraining uses train as the training sample and splits tbl around it,
// as Refresh does. Rows of train must have one value per feature of tbl.
func (db *DataBase) SeedTraining(train []domain.FeatureRow, tbl *domain.FeatureTable, opts SampleOptions) error {
	if len(train) == 0 {
		return fmt.Errorf("%w: empty initial training sample", ErrNotEnoughObjects)
	}
	for i := range train {
		if len(train[i].Features) != len(tbl.FeatureNames) {
			return fmt.Errorf("%w: training object %s has %d features, expected %d",
				domain.ErrValidation, train[i].ID, len(train[i].Features), len(tbl.FeatureNames))
		}
	}
	db.opts = opts
	db.All = nil
	db.Train = slices.Clone(train)
	db.queried = nil
	return db.Refresh(tbl)
}
