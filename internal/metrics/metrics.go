package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eclreports_pages_total",
		Help: "OCR pages handled by outcome",
	}, []string{"outcome"}) // outcome=extracted|skipped|missing|failed

	tablesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eclreports_tables_written_total",
		Help: "Table CSV files written",
	})

	reconciledRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eclreports_reconciled_rows_total",
		Help: "Loss stage rows checked against the closing balance identity",
	}, []string{"stage", "result"}) // result=balanced|unbalanced|unparseable

	compileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eclreports_compile_runs_total",
		Help: "Compilation runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eclreports_reviews_total",
		Help: "Advisory reviews requested by outcome",
	}, []string{"outcome"})
)

func IncPage(outcome string)    { pagesTotal.WithLabelValues(outcome).Inc() }
func AddTablesWritten(n int)    { tablesWritten.Add(float64(n)) }
func IncCompile(outcome string) { compileRuns.WithLabelValues(outcome).Inc() }
func IncReview(outcome string)  { reviewsTotal.WithLabelValues(outcome).Inc() }

func RecordRows(stage string, balanced, unbalanced, unparseable int) {
	reconciledRows.WithLabelValues(stage, "balanced").Add(float64(balanced))
	reconciledRows.WithLabelValues(stage, "unbalanced").Add(float64(unbalanced))
	reconciledRows.WithLabelValues(stage, "unparseable").Add(float64(unparseable))
}
