package common

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunIDTimeFormat is the timestamp prefix of a run id (UTC, millisecond precision)
const RunIDTimeFormat = "2006-01-02T15:04:05.000Z"

// NewRunID generates a run id of the form <ISO8601 timestamp>_<random hex>.
// Format: 2025-01-02T03:04:05.678Z_1a2b3c4d5e6f
func NewRunID(now time.Time) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return now.UTC().Format(RunIDTimeFormat) + "_" + random[:12]
}
