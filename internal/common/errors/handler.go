package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler resolves worker errors into either a failed job with retries
// or a thrown BPMN error.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolution is the outcome chosen for a failed job.
type Resolution struct {
	BPMN    *BPMNError
	Retry   bool
	Retries int
}

// Resolve decides how a job error is reported without touching the broker.
func (h *ErrorHandler) Resolve(job entities.Job, err error) Resolution {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries := bpmnErr.Retries
	if retries > 0 && job.Retries > 0 {
		if int(job.Retries) < retries {
			retries = int(job.Retries)
		}
		return Resolution{BPMN: bpmnErr, Retry: true, Retries: retries}
	}
	return Resolution{BPMN: bpmnErr}
}

// HandleJobError reports err for job to the broker.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) Resolution {
	res := h.Resolve(job, err)
	h.logError(job, res)

	if res.Retry {
		h.failJobWithRetries(ctx, client, job, res.BPMN, res.Retries)
	} else {
		h.throwBPMNError(ctx, client, job, res.BPMN)
	}
	return res
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage("[" + bpmnErr.Code + "] " + bpmnErr.Message)

	if withVars, err := cmd.VariablesFromString(variablesJSON(bpmnErr)); err == nil {
		if _, sendErr := withVars.Send(ctx); sendErr != nil {
			h.logSendFailure(job, "fail", sendErr)
		}
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logSendFailure(job, "fail", err)
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if withVars, err := cmd.VariablesFromString(variablesJSON(bpmnErr)); err == nil {
		if _, sendErr := withVars.Send(ctx); sendErr != nil {
			h.logSendFailure(job, "throw", sendErr)
		}
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logSendFailure(job, "throw", err)
	}
}

func variablesJSON(bpmnErr *BPMNError) string {
	raw, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func (h *ErrorHandler) logSendFailure(job entities.Job, command string, err error) {
	h.logger.Error("Failed to send job command", map[string]interface{}{
		"jobKey":  job.Key,
		"command": command,
		"error":   err.Error(),
	})
}

func (h *ErrorHandler) logError(job entities.Job, res Resolution) {
	code := ErrorCode("")
	if orig, ok := res.BPMN.ErrorVariables["originalErrorCode"].(string); ok {
		code = ErrorCode(orig)
	}
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(code),
		"bpmnErrorCode":    res.BPMN.Code,
		"message":          res.BPMN.Message,
		"details":          res.BPMN.Details,
		"retryable":        res.BPMN.Retryable,
		"retry":            res.Retry,
		"retries":          res.Retries,
		"errorCategory":    GetErrorCategory(code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
