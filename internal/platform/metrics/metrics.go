package metrics

import (
	"docvote/contexts/community-experience/document-voting/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VoteMetrics counts vote transitions by target state and outcome.
type VoteMetrics struct {
	votes    *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	factory := promauto.With(reg)
	return &VoteMetrics{
		votes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvote_votes_total",
				Help: "Vote commands by target state and whether the voter's state changed",
			},
			[]string{"target", "outcome"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvote_vote_failures_total",
				Help: "Vote commands that failed in storage, by target state",
			},
			[]string{"target"},
		),
	}
}

func (m *VoteMetrics) ObserveVote(target entities.VoteState, changed bool) {
	outcome := "unchanged"
	if changed {
		outcome = "changed"
	}
	m.votes.WithLabelValues(string(target), outcome).Inc()
}

func (m *VoteMetrics) ObserveVoteFailure(target entities.VoteState) {
	m.failures.WithLabelValues(string(target)).Inc()
}
