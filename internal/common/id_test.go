package common

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRunID(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.UTC)

	id := NewRunID(now)
	assert.Regexp(t, regexp.MustCompile(`^2025-03-04T05:06:07\.890Z_[0-9a-f]{12}$`), id)

	assert.NotEqual(t, id, NewRunID(now), "random suffix distinguishes runs started in the same millisecond")
}
