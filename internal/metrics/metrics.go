package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesConsumed tracks messages fetched per topic
	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_consumer_messages_consumed_total",
			Help: "Total number of messages fetched",
		},
		[]string{"topic"},
	)

	// ProcessingOutcomes tracks classified processing results per tier
	ProcessingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_consumer_processing_outcomes_total",
			Help: "Total number of processing attempts by outcome",
		},
		[]string{"tier", "outcome"},
	)

	// Republished tracks messages written to a next tier topic
	Republished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_consumer_republished_total",
			Help: "Total number of messages republished",
		},
		[]string{"source", "target"},
	)

	// RepublishErrors tracks failed republish attempts
	RepublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_consumer_republish_errors_total",
			Help: "Total number of failed republish attempts",
		},
		[]string{"target", "error_type"},
	)

	// DeadLetters tracks messages dropped terminally
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_consumer_dead_letters_total",
			Help: "Total number of dropped messages",
		},
		[]string{"topic", "reason"},
	)

	// APILatency tracks downstream API call latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_consumer_api_latency_seconds",
			Help:    "Downstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// ConsumerPaused is 1 while a consumer group is paused
	ConsumerPaused = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "order_consumer_paused",
			Help: "Whether the consumer group is paused",
		},
		[]string{"group_id"},
	)

	// LedgerEntries tracks the number of live retry counters
	LedgerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "order_consumer_ledger_entries",
			Help: "Number of live retry counters",
		},
	)
)
