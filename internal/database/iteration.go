package database

import (
	"strconv"
	"strings"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/metrics"
	"github.com/cointoolbox/resspect/internal/table"
)

// Iteration is the outcome of one active learning step.
type Iteration struct {
	Loop  int
	Epoch int
	// MetricNames and MetricValues are aligned; values are empty when the
	// step did not evaluate.
	MetricNames  []string
	MetricValues []float64
	NTrain       int
	NTest        int
	QueriedIDs   []string
	Queried      []domain.FeatureRow
}

// noQuery marks iterations that queried nothing in the metrics file.
const noQuery = "-"

// MetricsHeader is the header of the metrics file.
func MetricsHeader() []string {
	h := []string{"loop", "epoch"}
	h = append(h, metrics.Names()...)
	return append(h, "n_train", "n_test", "query_ids")
}

// MetricsRow encodes it as a metrics file row.
func (it Iteration) MetricsRow() []string {
	row := []string{strconv.Itoa(it.Loop), strconv.Itoa(it.Epoch)}
	for i := range metrics.Names() {
		v := 0.0
		if i < len(it.MetricValues) {
			v = it.MetricValues[i]
		}
		row = append(row, table.FormatFloat(v))
	}
	ids := noQuery
	if len(it.QueriedIDs) > 0 {
		ids = strings.Join(it.QueriedIDs, ",")
	}
	return append(row, strconv.Itoa(it.NTrain), strconv.Itoa(it.NTest), ids)
}

// QueriedHeader is the header of the queried-objects file.
func QueriedHeader(featureNames []string) []string {
	h := []string{"loop", "epoch", "id", "type", "code", "redshift"}
	return append(h, featureNames...)
}

// QueriedRows encodes the objects queried during it.
func (it Iteration) QueriedRows() [][]string {
	rows := make([][]string, 0, len(it.Queried))
	for _, q := range it.Queried {
		row := []string{
			strconv.Itoa(it.Loop),
			strconv.Itoa(it.Epoch),
			q.ID,
			q.SNType,
			strconv.Itoa(q.SNCode),
			table.FormatFloat(q.Redshift),
		}
		for _, f := range q.Features {
			row = append(row, table.FormatFloat(f))
		}
		rows = append(rows, row)
	}
	return rows
}

// SaveMetrics appends the metrics row of the current state to a.
func (db *DataBase) SaveMetrics(a *table.Appender, loop, epoch int) error {
	return a.Append(db.Iteration(loop, epoch).MetricsRow())
}

// SaveQueried appends the objects queried last to a.
func (db *DataBase) SaveQueried(a *table.Appender, loop, epoch int) error {
	for _, row := range db.Iteration(loop, epoch).QueriedRows() {
		if err := a.Append(row); err != nil {
			return err
		}
	}
	return nil
}

// ReadMetrics loads a metrics file written by SaveMetrics as one series
// per metric, indexed by row order, together with the loop column.
func ReadMetrics(path string) (loops []int, series map[string][]float64, err error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	loopCol, err := t.Column("loop")
	if err != nil {
		return nil, nil, err
	}
	series = make(map[string][]float64)
	cols := make(map[string]int)
	for _, name := range metrics.Names() {
		c, err := t.Column(name)
		if err != nil {
			return nil, nil, err
		}
		cols[name] = c
	}
	for _, row := range t.Rows {
		l, err := strconv.Atoi(row[loopCol])
		if err != nil {
			return nil, nil, err
		}
		loops = append(loops, l)
		for name, c := range cols {
			v, err := table.ParseFloat(row[c])
			if err != nil {
				return nil, nil, err
			}
			series[name] = append(series[name], v)
		}
	}
	return loops, series, nil
}
