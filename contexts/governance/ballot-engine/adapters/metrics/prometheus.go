package metrics

import (
	"strings"

	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "ballotbox"
	subsystem = "ballot"
)

// Prometheus records command outcomes and the current leader per ballot.
type Prometheus struct {
	commands *prometheus.CounterVec
	leader   *prometheus.GaugeVec
}

var _ ports.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the collectors on reg. A nil reg falls back to the
// default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Prometheus{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_total",
			Help:      "ballot commands by operation and outcome",
		}, []string{"operation", "outcome"}),
		leader: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "leading_proposal",
			Help:      "index of the currently winning proposal",
		}, []string{"ballot_id"}),
	}
}

func (p *Prometheus) ObserveCommand(operation string, outcome string) {
	p.commands.WithLabelValues(operation, outcome).Inc()
}

func (p *Prometheus) SetLeader(ballotID string, proposal int) {
	ballotID = strings.TrimSpace(ballotID)
	if ballotID == "" {
		return
	}
	p.leader.WithLabelValues(ballotID).Set(float64(proposal))
}
