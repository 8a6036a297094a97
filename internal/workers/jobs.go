// internal/workers/jobs.go

// Package workers holds what every intake job handler shares: decoding job
// variables, completing jobs and reporting failures through the BPMN error
// handler.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "applicant-intake/internal/common/errors"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/metrics"
	"applicant-intake/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const sendTimeout = 10 * time.Second

// InputValidator checks raw job variables. *validation.Validator implements it.
type InputValidator interface {
	ValidateInput(taskType string, variables []byte) *validation.ValidationResult
}

// Decode validates the job variables against the task's input schema, when a
// validator is given, and unmarshals them into input.
func Decode(job entities.Job, taskType string, v InputValidator, input interface{}) error {
	raw := []byte(job.Variables)
	if v != nil {
		if res := v.ValidateInput(taskType, raw); !res.Valid {
			return apperrors.NewInvalidInputError(res.Summary())
		}
	}
	if err := json.Unmarshal(raw, input); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

// Complete sends output as the job's result variables.
func Complete(client worker.JobClient, job entities.Job, taskType string, output interface{}, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
	log.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}

// Fail reports err for the job: retryable codes fail the job with retries
// left, everything else is thrown as a BPMN error.
func Fail(client worker.JobClient, job entities.Job, taskType string, err error, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(taskType, string(stdErr.Code)).Inc()
	apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job, stdErr)
}
