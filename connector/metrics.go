package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultBuilt  = "built"
	resultCached = "cached"
	resultFailed = "failed"
)

var initializations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "connplan_initializations_total",
	Help: "Connector configuration initializations by outcome.",
}, []string{"backend", "result"})
