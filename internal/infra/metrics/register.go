package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors queue up through init() in the per-concern files; nothing
// touches the default registry until main calls MustRegister.

var (
	regOnce sync.Once
	pending []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister registers every queued collector with the default Prometheus
// registry. Repeated calls are no-ops.
func MustRegister() {
	regOnce.Do(func() {
		if len(pending) == 0 {
			return
		}
		prometheus.MustRegister(pending...)
	})
}
