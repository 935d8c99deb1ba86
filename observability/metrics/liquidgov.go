package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LiquidGov holds the Prometheus instrumentation for the delegation graph,
// attestation verifier, and reward allocator, constructed once and
// registered against the default registry, and returned as one struct of
// vectors.
type LiquidGov struct {
	delegationMutations *prometheus.CounterVec
	delegationRejected  *prometheus.CounterVec
	delegationDepth     *prometheus.GaugeVec
	topicParticipants   *prometheus.GaugeVec

	attestationAccepted *prometheus.CounterVec
	attestationRejected *prometheus.CounterVec
	operatorActive      prometheus.Gauge
	operatorAcceptance  *prometheus.CounterVec

	flowsOpen      *prometheus.GaugeVec
	flowRateSum    *prometheus.GaugeVec
	flowsTransient *prometheus.CounterVec
}

var (
	liquidGovOnce sync.Once
	liquidGovReg  *LiquidGov
)

func LiquidGovMetrics() *LiquidGov {
	liquidGovOnce.Do(func() {
		liquidGovReg = &LiquidGov{
			delegationMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidgov_delegation_mutations_total",
				Help: "Count of accepted delegation-graph mutations by kind.",
			}, []string{"kind"}),
			delegationRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidgov_delegation_rejected_total",
				Help: "Count of rejected delegate calls by error kind.",
			}, []string{"reason"}),
			delegationDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidgov_delegation_chain_depth",
				Help: "Last observed delegation chain depth for a topic.",
			}, []string{"topic"}),
			topicParticipants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidgov_topic_participants",
				Help: "Size of a topic's participation index.",
			}, []string{"topic"}),
			attestationAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidgov_attestation_accepted_total",
				Help: "Count of attestations accepted by topic.",
			}, []string{"topic"}),
			attestationRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidgov_attestation_rejected_total",
				Help: "Count of attestations rejected by reason.",
			}, []string{"reason"}),
			operatorActive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "liquidgov_operators_active",
				Help: "Current count of active attestation operators.",
			}),
			operatorAcceptance: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidgov_operator_acceptance_total",
				Help: "Count of accepted attestations signed per operator.",
			}, []string{"operator"}),
			flowsOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidgov_flows_open",
				Help: "Count of active reward streams per topic.",
			}, []string{"topic"}),
			flowRateSum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidgov_flow_rate_sum",
				Help: "Sum of active stream rates for a topic, as a float approximation of the underlying integer rate.",
			}, []string{"topic"}),
			flowsTransient: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidgov_flow_transitions_total",
				Help: "Count of stream open/update/close transitions by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			liquidGovReg.delegationMutations,
			liquidGovReg.delegationRejected,
			liquidGovReg.delegationDepth,
			liquidGovReg.topicParticipants,
			liquidGovReg.attestationAccepted,
			liquidGovReg.attestationRejected,
			liquidGovReg.operatorActive,
			liquidGovReg.operatorAcceptance,
			liquidGovReg.flowsOpen,
			liquidGovReg.flowRateSum,
			liquidGovReg.flowsTransient,
		)
	})
	return liquidGovReg
}

func (m *LiquidGov) ObserveDelegationMutation(kind string) {
	if m == nil {
		return
	}
	m.delegationMutations.WithLabelValues(kind).Inc()
}

func (m *LiquidGov) ObserveDelegationRejected(reason string) {
	if m == nil {
		return
	}
	m.delegationRejected.WithLabelValues(reason).Inc()
}

func (m *LiquidGov) SetDelegationDepth(topic uint64, depth int) {
	if m == nil {
		return
	}
	m.delegationDepth.WithLabelValues(topicLabel(topic)).Set(float64(depth))
}

func (m *LiquidGov) SetTopicParticipants(topic uint64, count int) {
	if m == nil {
		return
	}
	m.topicParticipants.WithLabelValues(topicLabel(topic)).Set(float64(count))
}

func (m *LiquidGov) ObserveAttestationAccepted(topic uint64) {
	if m == nil {
		return
	}
	m.attestationAccepted.WithLabelValues(topicLabel(topic)).Inc()
}

func (m *LiquidGov) ObserveAttestationRejected(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.attestationRejected.WithLabelValues(reason).Inc()
}

func (m *LiquidGov) SetActiveOperators(count int) {
	if m == nil {
		return
	}
	m.operatorActive.Set(float64(count))
}

func (m *LiquidGov) ObserveOperatorAcceptance(operatorID string) {
	if m == nil {
		return
	}
	m.operatorAcceptance.WithLabelValues(operatorID).Inc()
}

func (m *LiquidGov) SetFlowsOpen(topic uint64, count int) {
	if m == nil {
		return
	}
	m.flowsOpen.WithLabelValues(topicLabel(topic)).Set(float64(count))
}

func (m *LiquidGov) SetFlowRateSum(topic uint64, rate float64) {
	if m == nil {
		return
	}
	m.flowRateSum.WithLabelValues(topicLabel(topic)).Set(rate)
}

func (m *LiquidGov) ObserveFlowTransition(kind string) {
	if m == nil {
		return
	}
	m.flowsTransient.WithLabelValues(kind).Inc()
}

func topicLabel(topic uint64) string {
	return fmt.Sprintf("%d", topic)
}
