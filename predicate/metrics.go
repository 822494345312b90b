package predicate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rejectedPredicates = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "connplan_rejected_predicates_total",
	Help: "Predicates rejected because the backend can't express their operator.",
}, []string{"backend", "operator"})
