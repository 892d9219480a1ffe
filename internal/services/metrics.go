package services

import "github.com/prometheus/client_golang/prometheus"

// Reaction write outcomes.
const (
	outcomeApplied  = "applied"
	outcomeReplayed = "replayed"
	outcomeRemoved  = "removed"
)

var (
	// reactionWrites counts reaction writes by outcome.
	reactionWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "announcements_reaction_writes_total",
			Help: "Reaction writes by outcome (applied, replayed, removed).",
		},
		[]string{"outcome"},
	)

	// commentsCreated counts comments stored.
	commentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "announcements_comments_created_total",
			Help: "Total number of comments created.",
		},
	)

	// notModified counts list reads answered with 304.
	notModified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "announcements_etag_not_modified_total",
			Help: "Announcement list reads short-circuited by a matching ETag.",
		},
	)
)

func init() {
	prometheus.MustRegister(reactionWrites, commentsCreated, notModified)
}
