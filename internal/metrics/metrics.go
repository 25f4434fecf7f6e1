// Package metrics exposes Prometheus counters and gauges for the client's
// own activity, following the teacher's promauto.NewCounterVec/NewGaugeVec
// idiom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPublishedTotal counts successful outbound publishes.
	// Labels: topic
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_messages_published_total",
			Help: "Total number of messages published to the broker",
		},
		[]string{"topic"},
	)

	// MessagesReceivedTotal counts inbound messages matched against a
	// configured topic pattern.
	// Labels: topic_pattern
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_messages_received_total",
			Help: "Total number of received messages matched against a configured topic",
		},
		[]string{"topic_pattern"},
	)

	// PayloadConversionErrorsTotal counts failures converting a payload
	// between formats.
	// Labels: direction (decode|encode), kind
	PayloadConversionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_payload_conversion_errors_total",
			Help: "Total number of payload conversion failures",
		},
		[]string{"direction", "kind"},
	)

	// FilterErrorsTotal counts failures applying a subscription's filter
	// pipeline.
	// Labels: topic_pattern
	FilterErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_filter_errors_total",
			Help: "Total number of filter pipeline failures",
		},
		[]string{"topic_pattern"},
	)
)

var (
	// SchedulerJobsActive reports how many periodic publish jobs are
	// currently pending completion.
	SchedulerJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqtli_scheduler_jobs_active",
			Help: "Number of periodic publish jobs not yet exhausted",
		},
	)

	// SchedulerPublishFailuresTotal counts publish failures triggered by
	// the scheduler.
	// Labels: topic
	SchedulerPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_scheduler_publish_failures_total",
			Help: "Total number of scheduled publishes that failed",
		},
		[]string{"topic"},
	)
)

var (
	// SinkOutputErrorsTotal counts failures writing to an output sink.
	// Labels: target (console|file|topic|sql)
	SinkOutputErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_sink_output_errors_total",
			Help: "Total number of output sink write failures",
		},
		[]string{"target"},
	)

	// SqlInsertsTotal counts successful SQL sink inserts.
	// Labels: scheme (sqlite|mysql|postgres)
	SqlInsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_sql_inserts_total",
			Help: "Total number of successful SQL sink inserts",
		},
		[]string{"scheme"},
	)
)

var (
	// SparkplugEdgeNodesOnline tracks the number of edge nodes currently
	// believed to be online.
	SparkplugEdgeNodesOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqtli_sparkplug_edge_nodes_online",
			Help: "Number of Sparkplug edge nodes currently marked online",
		},
	)

	// SparkplugMessagesTotal counts Sparkplug payloads assimilated into
	// the network view.
	// Labels: message_type
	SparkplugMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtli_sparkplug_messages_total",
			Help: "Total number of Sparkplug messages assimilated into the network view",
		},
		[]string{"message_type"},
	)
)

// SanitizeTopic limits a topic string's label cardinality the way the
// teacher's SanitizeTenantID/SanitizeSiteID helpers cap label value length:
// truncate, and use the subscription pattern rather than the concrete
// topic wherever one is available so wildcard subscriptions don't explode
// into one label series per device.
func SanitizeTopic(topic string) string {
	if topic == "" {
		return "unknown"
	}
	const maxLen = 64
	if len(topic) > maxLen {
		return topic[:maxLen]
	}
	return topic
}
