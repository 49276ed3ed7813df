package auditlog

import (
	"errors"
	"fmt"
	"strings"
)

// MaxErrorSummaryChars caps errorSummary= values
const MaxErrorSummaryChars = 200

// ErrorInfo is the loggable view of an error
type ErrorInfo struct {
	Name    string
	Code    string
	Summary string
}

// Fields renders "errorName=<n> errorCode=<c> errorSummary=<s>"
func (e ErrorInfo) Fields() string {
	return fmt.Sprintf("errorName=%s errorCode=%s errorSummary=%s", e.Name, e.Code, e.Summary)
}

type coded interface {
	ErrorCode() string
}

type named interface {
	ErrorName() string
}

// FormatError extracts name, code and a redacted one-line summary from err.
// Name and code come from the first error in the chain that provides them.
func FormatError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Name: "UNKNOWN"}
	}

	info := ErrorInfo{Name: typeName(err)}

	var n named
	if errors.As(err, &n) {
		info.Name = n.ErrorName()
	}

	var c coded
	if errors.As(err, &c) {
		info.Code = c.ErrorCode()
	}

	info.Summary = OneLineAndTruncate(safeRedact(Redact, err.Error(), ""), MaxErrorSummaryChars)
	return info
}

// typeName returns the unqualified Go type of err, or "Error" for anonymous wrappers
func typeName(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "errorString", "wrapError", "wrapErrors", "joinError":
		return "Error"
	}
	return name
}

// Fields joins key/value pairs as "k1=v1 k2=v2"
func Fields(pairs ...string) string {
	var sb strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(pairs[i])
		sb.WriteByte('=')
		sb.WriteString(pairs[i+1])
	}
	return sb.String()
}
