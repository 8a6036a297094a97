// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"applicant-intake/internal/common/config"
	"applicant-intake/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandlerFunc matches the Zeebe job handler signature. Handlers complete or
// fail the job themselves.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Registration binds a task type to its handler.
type Registration struct {
	TaskType string
	Handler  HandlerFunc
}

// JobObserver records a span and the otel job instruments for each job.
// *observability.Observability implements it.
type JobObserver interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Instrument wraps h with the active-jobs gauge, the duration histogram and
// panic recovery. A panicking handler fails the job with no retries left.
// obs may be nil.
func Instrument(taskType string, h HandlerFunc, obs JobObserver, log *zap.Logger) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()

		var span trace.Span
		ctx := context.Background()
		if obs != nil {
			ctx, span = obs.StartSpan(ctx, "job "+taskType,
				attribute.String("task_type", taskType),
				attribute.Int64("job_key", job.Key),
			)
		}

		defer func() {
			status := "handled"
			active.Dec()
			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if r := recover(); r != nil {
				status = "panicked"
				log.Error("handler panicked",
					zap.String("taskType", taskType),
					zap.Int64("jobKey", job.Key),
					zap.Any("panic", r),
				)
				metrics.WorkerJobsFailed.WithLabelValues(taskType, "PANIC").Inc()
				failJob(client, job, "handler panicked", log)
				if span != nil {
					span.SetStatus(codes.Error, "handler panicked")
				}
			}
			if obs != nil {
				obs.RecordJobProcessed(ctx, taskType, status)
				obs.RecordJobDuration(ctx, taskType, elapsed, status)
				span.End()
			}
		}()
		h(client, job)
	}
}

// CamundaWorker is one open job worker.
type CamundaWorker struct {
	taskType string
	worker   worker.JobWorker
	logger   *zap.Logger
}

// StartWorker opens a job worker for reg using the per-worker limits from
// wcfg, falling back to the broker-wide defaults.
func StartWorker(
	client zbc.Client,
	reg Registration,
	wcfg config.WorkerConfig,
	defaults config.CamundaConfig,
	obs JobObserver,
	log *zap.Logger,
) *CamundaWorker {
	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = defaults.MaxJobsActive
	}
	timeout := wcfg.Timeout
	if timeout <= 0 {
		timeout = defaults.Timeout
	}

	jw := client.NewJobWorker().
		JobType(reg.TaskType).
		Handler(worker.JobHandler(Instrument(reg.TaskType, reg.Handler, obs, log))).
		MaxJobsActive(maxJobs).
		Timeout(config.GetDuration(timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", reg.TaskType),
		zap.Int("maxJobsActive", maxJobs),
		zap.Int("timeoutMs", timeout),
	)

	return &CamundaWorker{taskType: reg.TaskType, worker: jw, logger: log}
}

func (w *CamundaWorker) TaskType() string { return w.taskType }

// Stop closes the worker and waits for in-flight jobs to finish.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}

func failJob(client worker.JobClient, job entities.Job, msg string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(msg).
		Send(ctx)
	if err != nil {
		log.Error("failed to fail job", zap.Int64("jobKey", job.Key), zap.Error(err))
	}
}
