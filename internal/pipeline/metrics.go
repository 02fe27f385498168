package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/coa-verifier/constants"
)

// Metrics counts pipeline outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	documents *prometheus.CounterVec
	rows      prometheus.Counter
	names     *prometheus.CounterVec
	limits    *prometheus.CounterVec
	catalog   *prometheus.CounterVec
}

// NewMetrics registers the pipeline counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coa_documents_total",
			Help: "Certificates processed, by outcome",
		}, []string{"outcome"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coa_rows_total",
			Help: "Result rows extracted from certificates",
		}),
		names: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coa_name_resolution_total",
			Help: "Substance names resolved, by tier",
		}, []string{"tier"}),
		limits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coa_limit_resolution_total",
			Help: "Residue limits resolved, by source",
		}, []string{"source"}),
		catalog: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coa_catalog_requests_total",
			Help: "Remote catalog lookups, by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.documents, m.rows, m.names, m.limits, m.catalog)
	return m
}

func (m *Metrics) Document(outcome constants.Outcome) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) Rows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.Add(float64(n))
}

func (m *Metrics) NameResolved(tier constants.NameTier) {
	if m == nil {
		return
	}
	m.names.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) LimitResolved(source constants.LimitSource) {
	if m == nil {
		return
	}
	m.limits.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) CatalogRequest(result string) {
	if m == nil {
		return
	}
	m.catalog.WithLabelValues(result).Inc()
}
