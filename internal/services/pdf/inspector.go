// -----------------------------------------------------------------------
// PDF Inspector - sanity checks downloaded paper PDFs
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info describes a parsed PDF
type Info struct {
	Pages int
}

// Inspect parses data as a PDF and reports its page count. An error means
// the bytes are not a readable PDF (for example an HTML error page).
func Inspect(data []byte) (info *Info, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PDF")
	}

	// pdfcpu panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	return &Info{Pages: pages}, nil
}
