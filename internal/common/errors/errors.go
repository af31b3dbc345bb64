// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Report generation errors
const (
	ErrCodeInvalidIntake       ErrorCode = "INVALID_INTAKE"
	ErrCodeOrderNotEligible    ErrorCode = "ORDER_NOT_ELIGIBLE"
	ErrCodeGenerationInFlight  ErrorCode = "GENERATION_IN_FLIGHT"
	ErrCodeGenerationTransport ErrorCode = "GENERATION_TRANSPORT_FAILED"
	ErrCodeEmptyNarrative      ErrorCode = "EMPTY_NARRATIVE"
	ErrCodeGenerationTimeout   ErrorCode = "GENERATION_TIMEOUT"

	ErrCodeReportNotFound        ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeReportAlreadyTerminal ErrorCode = "REPORT_ALREADY_TERMINAL"
	ErrCodeReportStoreFailed     ErrorCode = "REPORT_STORE_FAILED"
	ErrCodeReportIndexFailed     ErrorCode = "REPORT_INDEX_FAILED"
	ErrCodeSearchQueryFailed     ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInputParsingFailed     ErrorCode = "INPUT_PARSING_FAILED"
)

// Generic codes
const (
	ErrCodeBusinessRule     ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another *StandardError by code, so errors.Is works against
// the constructors' results and wrapped copies alike.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidIntakeError reports a malformed intake record or generation request.
func NewInvalidIntakeError(details string) *StandardError {
	return newError(ErrCodeInvalidIntake, "Intake record is invalid", details, false)
}

// NewOrderNotEligibleError reports an order whose status forbids generation.
func NewOrderNotEligibleError(orderID, status string) *StandardError {
	return newError(ErrCodeOrderNotEligible, "Order is not eligible for report generation",
		fmt.Sprintf("orderId: %s, status: %s", orderID, status), false)
}

// NewGenerationInFlightError reports a concurrent attempt for the same order.
func NewGenerationInFlightError(orderID string) *StandardError {
	return newError(ErrCodeGenerationInFlight, "A report is already being generated for this order",
		fmt.Sprintf("orderId: %s", orderID), false)
}

// NewGenerationTransportError wraps a failed narrative generator call.
func NewGenerationTransportError(err error) *StandardError {
	return newError(ErrCodeGenerationTransport, "Narrative generation failed", err.Error(), true)
}

// NewEmptyNarrativeError reports a generator that returned no usable text.
func NewEmptyNarrativeError() *StandardError {
	return newError(ErrCodeEmptyNarrative, "Narrative generator returned empty text", "", true)
}

// NewGenerationTimeoutError reports a generator call cut off by its deadline.
func NewGenerationTimeoutError(err error) *StandardError {
	return newError(ErrCodeGenerationTimeout, "Narrative generation timed out", err.Error(), true)
}

// NewReportNotFoundError creates a non-retryable lookup error.
func NewReportNotFoundError(ownerID, reportID string) *StandardError {
	return newError(ErrCodeReportNotFound, "Report not found",
		fmt.Sprintf("ownerId: %s, reportId: %s", ownerID, reportID), false)
}

// NewReportAlreadyTerminalError reports a write against a settled report.
func NewReportAlreadyTerminalError(reportID, status string) *StandardError {
	return newError(ErrCodeReportAlreadyTerminal, "Report has already reached a terminal status",
		fmt.Sprintf("reportId: %s, status: %s", reportID, status), false)
}

// NewReportStoreFailedError creates a retryable persistence error.
func NewReportStoreFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeReportStoreFailed, "Report store operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

// NewReportIndexFailedError creates a retryable search indexing error.
func NewReportIndexFailedError(reportID string, err error) *StandardError {
	return newError(ErrCodeReportIndexFailed, "Report indexing failed",
		fmt.Sprintf("reportId: %s, error: %s", reportID, err.Error()), true)
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Report search failed", err.Error(), true)
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// NewInputParsingFailedError reports job variables that could not be decoded.
func NewInputParsingFailedError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err.Error(), false)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled on
// boundary events. Codes without an entry are thrown as-is.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidIntake:          "INVALID_INTAKE",
	ErrCodeOrderNotEligible:       "ORDER_NOT_ELIGIBLE",
	ErrCodeGenerationInFlight:     "GENERATION_IN_FLIGHT",
	ErrCodeGenerationTransport:    "GENERATION_FAILED",
	ErrCodeEmptyNarrative:         "GENERATION_FAILED",
	ErrCodeGenerationTimeout:      "GENERATION_FAILED",
	ErrCodeReportNotFound:         "REPORT_NOT_FOUND",
	ErrCodeReportAlreadyTerminal:  "REPORT_ALREADY_TERMINAL",
	ErrCodeReportStoreFailed:      "REPORT_STORE_FAILED",
	ErrCodeReportIndexFailed:      "REPORT_INDEX_FAILED",
	ErrCodeSearchQueryFailed:      "SEARCH_QUERY_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeInputParsingFailed:     "INPUT_PARSING_FAILED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeReportStoreFailed,
		ErrCodeReportIndexFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	case ErrCodeGenerationTransport,
		ErrCodeEmptyNarrative,
		ErrCodeGenerationTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err to a *StandardError when one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsGenerationFailure is true for transport failures and their variants.
func IsGenerationFailure(err error) bool {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return false
	}
	switch stdErr.Code {
	case ErrCodeGenerationTransport, ErrCodeEmptyNarrative, ErrCodeGenerationTimeout:
		return true
	}
	return false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INTAKE") || strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "NARRATIVE"):
		return "GENERATION"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "STORE") || strings.HasPrefix(codeStr, "REPORT_"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ORDER") || strings.Contains(codeStr, "BUSINESS"):
		return "BUSINESS_RULE"
	default:
		return "OTHER"
	}
}
