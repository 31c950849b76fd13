// Package metrics exports coordinator decisions as Prometheus counters.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

// Observer counts decisions by outcome. It implements errfwd.Observer.
//
// errfwd_filter_decisions_total counts the filter list that decided each
// occurrence. Force-forward wins, so an occurrence matched by both lists is
// counted under role="force_forward" only; ignore filters are not evaluated
// for it.
type Observer struct {
	decisions *prometheus.CounterVec
	filtered  *prometheus.CounterVec
	unrouted  prometheus.Counter
}

// NewObserver creates an Observer and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errfwd_decisions_total",
				Help: "Total number of processed occurrences by outcome",
			},
			[]string{"status"},
		),
		filtered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errfwd_filter_decisions_total",
				Help: "Total number of occurrences decided by a filter list (ignore counts only occurrences not force-forwarded)",
			},
			[]string{"role"},
		),
		unrouted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "errfwd_unrouted_total",
				Help: "Total number of occurrences processed without a configured sink",
			},
		),
	}

	for _, c := range []prometheus.Collector{o.decisions, o.filtered, o.unrouted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Observe records d.
func (o *Observer) Observe(ctx context.Context, d errfwd.Decision) {
	o.decisions.WithLabelValues(d.Status.String()).Inc()
	if !d.HasSink {
		o.unrouted.Inc()
		return
	}
	if d.Forced {
		o.filtered.WithLabelValues("force_forward").Inc()
	}
	if d.Ignored {
		o.filtered.WithLabelValues("ignore").Inc()
	}
}
