package llm

import (
	"fmt"
	"strings"
)

// ConfigError is a hard configuration failure: a provider was selected but a
// mandatory field is missing, or the env file could not be read.
type ConfigError struct {
	Code   string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Code
	if e.Detail != "" {
		msg += " " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error     { return e.Err }
func (e *ConfigError) ErrorCode() string { return e.Code }
func (e *ConfigError) ErrorName() string { return "ConfigError" }

// Phase names the step of a provider call that failed
type Phase string

const (
	PhaseRequest    Phase = "request"
	PhaseResponse   Phase = "response"
	PhaseDownload   Phase = "download"
	PhaseUpload     Phase = "upload"
	PhaseStatus     Phase = "status"
	PhaseProcessing Phase = "processing"
	PhaseQuery      Phase = "query"
	PhaseTimeout    Phase = "timeout"
	PhaseConnect    Phase = "connect"
)

// ProviderError is a failed provider call. Code is a provider-specific tag
// such as OPENAI_REQUEST_FAILED or PAGEINDEX_TIMEOUT.
type ProviderError struct {
	Provider   ProviderKind
	Phase      Phase
	Code       string
	HTTPStatus int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code)
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&sb, " httpStatus=%d", e.HTTPStatus)
	}
	if e.Detail != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ProviderError) Unwrap() error     { return e.Err }
func (e *ProviderError) ErrorCode() string { return e.Code }
func (e *ProviderError) ErrorName() string { return "ProviderError" }

func providerError(kind ProviderKind, phase Phase, code string, status int, detail string, err error) *ProviderError {
	return &ProviderError{
		Provider:   kind,
		Phase:      phase,
		Code:       code,
		HTTPStatus: status,
		Detail:     detail,
		Err:        err,
	}
}

// truncate caps remote payload excerpts placed in error details
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
