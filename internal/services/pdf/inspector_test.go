package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestInspect_RejectsNonPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"html error page", []byte("<html><body>404 Not Found</body></html>")},
		{"truncated header", []byte("%PDF-1.4\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data)
			assert.Error(t, err)
			assert.Nil(t, info)
		})
	}
}

func TestInspect_CountsPages(t *testing.T) {
	service := NewService(arbor.NewLogger(), "")
	data, err := service.RenderMarkdown("# One page", "Single")
	require.NoError(t, err)

	info, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
}
