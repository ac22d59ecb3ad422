// Package metrics exposes ledger counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records ledger activity on its own registry
type Collector struct {
	registry              *prometheus.Registry
	postings              *prometheus.CounterVec
	balanceRejections     *prometheus.CounterVec
	categoryTypeDefaulted prometheus.Counter
	budgetNotifications   *prometheus.CounterVec
	monitorFailures       prometheus.Counter
	recurringItems        *prometheus.CounterVec
	recurringRunDuration  prometheus.Histogram
}

// NewCollector registers every ledger metric plus the Go runtime collectors
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		postings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Committed ledger operations by kind",
		}, []string{"operation"}),
		balanceRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_balance_rejections_total",
			Help: "Operations rejected because a balance would become negative",
		}, []string{"operation"}),
		categoryTypeDefaulted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_category_type_defaulted_total",
			Help: "Category lookups that fell back to EXPENSE",
		}),
		budgetNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_budget_notifications_total",
			Help: "Budget threshold notifications emitted",
		}, []string{"level"}),
		monitorFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_budget_monitor_failures_total",
			Help: "Budget evaluations that failed and were swallowed",
		}),
		recurringItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_recurring_items_total",
			Help: "Recurring items handled by the poster by outcome",
		}, []string{"outcome"}),
		recurringRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_recurring_run_duration_seconds",
			Help:    "Time taken by one recurring poster run",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (c *Collector) Posted(operation string) {
	c.postings.WithLabelValues(operation).Inc()
}

func (c *Collector) BalanceRejected(operation string) {
	c.balanceRejections.WithLabelValues(operation).Inc()
}

func (c *Collector) CategoryTypeDefaulted() {
	c.categoryTypeDefaulted.Inc()
}

func (c *Collector) BudgetNotified(level string) {
	c.budgetNotifications.WithLabelValues(level).Inc()
}

func (c *Collector) MonitorFailed() {
	c.monitorFailures.Inc()
}

func (c *Collector) RecurringItem(outcome string) {
	c.recurringItems.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecurringRun(elapsed time.Duration) {
	c.recurringRunDuration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
