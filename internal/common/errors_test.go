package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedError(t *testing.T) {
	base := errors.New("permission denied")
	err := NewCodedError("NOTE_WRITE_FAILED", "papers/a.md", base)

	assert.Equal(t, "NOTE_WRITE_FAILED: papers/a.md: permission denied", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "NOTE_WRITE_FAILED", err.ErrorCode())

	wrapped := fmt.Errorf("summary step: %w", err)
	assert.Equal(t, "NOTE_WRITE_FAILED", CodeOf(wrapped, "UNKNOWN"))
	assert.Equal(t, "UNKNOWN", CodeOf(errors.New("plain"), "UNKNOWN"))

	assert.Equal(t, "HTML_MISSING: papers/x/1.html", Errorf("HTML_MISSING", "papers/%s/%d.html", "x", 1).Error())
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("title: %w", Errorf("TITLE_FETCH_FAILED", "failed to fetch arXiv abs (status:%d)", 404))
	assert.Equal(t, "failed to fetch arXiv abs (status:404)", MessageOf(err))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
}
