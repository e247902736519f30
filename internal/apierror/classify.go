package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// bodyShape tags the three recognized forms an error body can take, so
// the branching below stays exhaustive instead of ad hoc field probing.
type bodyShape int

const (
	// shapeUnstructured covers empty bodies, non-JSON bodies, and JSON
	// without any recognized error field.
	shapeUnstructured bodyShape = iota
	// shapeDetailString is a body whose only usable content is a single
	// human-readable string (detail, message, or error field).
	shapeDetailString
	// shapeKnownCode is the structured form: a machine error code plus a
	// user message.
	shapeKnownCode
)

type parsedBody struct {
	shape   bodyShape
	code    Code
	message string
}

// ClassifyResponse classifies a non-2xx response given its status code
// and raw body.
func ClassifyResponse(status int, body []byte) *DomainError {
	pb := parseBody(body)

	var code Code
	var msg string

	switch pb.shape {
	case shapeKnownCode:
		code = pb.code
		msg = pb.message
	case shapeDetailString:
		code = codeForStatus(status)
		msg = pb.message
	default:
		code = codeForStatus(status)
		msg = statusMessage(status)
	}

	// A 401 without a structured body always means the session is no
	// longer valid; raw detail like "expired" is not a showable sentence,
	// so the canonical message replaces it (the detail survives in Raw).
	if status == http.StatusUnauthorized && pb.shape != shapeKnownCode {
		code = CodeAuthenticationExpired
		msg = MessageFor(CodeAuthenticationExpired)
	}

	return &DomainError{
		Code:        code,
		HTTPStatus:  status,
		UserMessage: msg,
		Severity:    severityFor(code, status),
		Suggestions: suggestionsFor(code, status),
		Raw:         string(body),
	}
}

// ClassifyTransport classifies a request that produced no response at all
// (connection refused, DNS failure, timeout).
func ClassifyTransport(err error) *DomainError {
	raw := ""
	if err != nil {
		raw = err.Error()
	}
	return &DomainError{
		Code:        CodeTransportUnreachable,
		UserMessage: MessageFor(CodeTransportUnreachable),
		Severity:    SeverityError,
		Suggestions: suggestionsFor(CodeTransportUnreachable, 0),
		Raw:         raw,
	}
}

// ClassifyDecode classifies a response that arrived but whose payload
// could not be decoded. The caller is responsible for logging the parse
// failure; classification itself never logs.
func ClassifyDecode(status int, err error) *DomainError {
	raw := ""
	if err != nil {
		raw = err.Error()
	}
	return &DomainError{
		Code:        CodeUnknown,
		HTTPStatus:  status,
		UserMessage: MessageFor(CodeUnknown),
		Severity:    SeverityError,
		Suggestions: nil,
		Raw:         raw,
	}
}

// parseBody reduces an error body to one of the three recognized shapes.
// Accepted structured form: {"error_code": ..., "user_message": ...}.
// Accepted detail forms: {"detail": "..."}, {"detail": {"message": ...}},
// {"message": "..."}, {"error": "..."}.
func parseBody(body []byte) parsedBody {
	if len(body) == 0 {
		return parsedBody{shape: shapeUnstructured}
	}

	var probe struct {
		ErrorCode   string          `json:"error_code"`
		UserMessage string          `json:"user_message"`
		Detail      json.RawMessage `json:"detail"`
		Message     string          `json:"message"`
		Error       string          `json:"error"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return parsedBody{shape: shapeUnstructured}
	}

	if probe.ErrorCode != "" && probe.UserMessage != "" {
		return parsedBody{
			shape:   shapeKnownCode,
			code:    Code(strings.ToUpper(probe.ErrorCode)),
			message: probe.UserMessage,
		}
	}

	if detail := detailString(probe.Detail); detail != "" {
		return parsedBody{shape: shapeDetailString, message: detail}
	}
	if probe.Message != "" {
		return parsedBody{shape: shapeDetailString, message: probe.Message}
	}
	if probe.Error != "" {
		return parsedBody{shape: shapeDetailString, message: probe.Error}
	}

	return parsedBody{shape: shapeUnstructured}
}

// detailString extracts the usable string from a detail field that may be
// a plain string or an object carrying a message.
func detailString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Message
	}
	return ""
}

// severityByCode is the explicit table for known codes, including the
// aliases the production backend emits verbatim.
var severityByCode = map[Code]Severity{
	CodeAuthenticationRequired: SeverityError,
	CodeAuthenticationExpired:  SeverityError,
	CodePermissionDenied:       SeverityError,
	CodeNotFound:               SeverityError,
	CodeValidationFailed:       SeverityError,
	CodeUploadTooLarge:         SeverityError,
	CodeUploadInvalidFormat:    SeverityError,
	CodeTransportUnreachable:   SeverityError,
	CodeServerError:            SeverityCritical,

	"AUTHENTICATION_INVALID": SeverityError,
	"RESOURCE_NOT_FOUND":     SeverityError,
	"VALIDATION_ERROR":       SeverityError,
	"UPLOAD_FILE_TOO_LARGE":  SeverityError,
	"NETWORK_ERROR":          SeverityError,
	"INTERNAL_ERROR":         SeverityCritical,
	"SERVICE_UNAVAILABLE":    SeverityCritical,
}

func severityFor(code Code, status int) Severity {
	if sev, ok := severityByCode[code]; ok {
		return sev
	}
	switch {
	case status >= 500:
		return SeverityCritical
	case status >= 400:
		return SeverityError
	case status >= 300:
		return SeverityWarning
	default:
		// Status 0 means no response was received.
		return SeverityError
	}
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeAuthenticationExpired
	case status == http.StatusForbidden:
		return CodePermissionDenied
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusRequestEntityTooLarge:
		return CodeUploadTooLarge
	case status == http.StatusUnsupportedMediaType:
		return CodeUploadInvalidFormat
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CodeValidationFailed
	case status >= 500:
		return CodeServerError
	default:
		return CodeUnknown
	}
}

// suggestionsFor is the fixed remediation lookup. Suggestions are never
// derived from response text.
func suggestionsFor(code Code, status int) []string {
	switch {
	case code == CodeAuthenticationRequired:
		return []string{"Log in and try again."}
	case code == CodeAuthenticationExpired || status == http.StatusUnauthorized:
		return []string{"Log in again."}
	case code == CodePermissionDenied:
		return []string{"Contact the site owner if you believe you should have access."}
	case code == CodeNotFound:
		return []string{"Refresh the list and try again."}
	case code == CodeValidationFailed:
		return []string{"Check the highlighted fields and try again."}
	case code == CodeUploadTooLarge:
		return []string{"Compress the file before uploading."}
	case code == CodeUploadInvalidFormat:
		return []string{"Convert the file to a supported format."}
	case code == CodeTransportUnreachable:
		return []string{"Check your internet connection.", "Try again in a few moments."}
	case status >= 500 || code == CodeServerError:
		return []string{"Try again in a few moments."}
	default:
		return nil
	}
}

func statusMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown Error"
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}
