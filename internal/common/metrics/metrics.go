// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// EnvelopesReceived counts assistant envelopes by outcome (accepted, rejected)
	// and rejection reason.
	EnvelopesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_envelopes_received_total",
			Help: "Assistant envelopes received on the message channel",
		},
		[]string{"outcome", "reason"},
	)

	IngestedFieldsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_ingested_fields_dropped_total",
			Help: "Ingested fields dropped during merge",
		},
		[]string{"source", "reason"},
	)

	RosterSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_roster_saves_total",
			Help: "Roster save attempts by outcome",
		},
		[]string{"outcome"},
	)

	ApplicantsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_applicants_persisted_total",
			Help: "Per-applicant save results",
		},
		[]string{"outcome"},
	)

	DocumentAttachFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_document_attach_failures_total",
			Help: "Failed document attach calls by category",
		},
		[]string{"category"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_remote_call_duration_seconds",
			Help:    "Duration of calls to remote collaborators",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation", "status"},
	)
)
