package notes

import (
	"path"
	"strings"
)

// AttachmentFolder returns "<parent>/<noteBase>", the folder holding a note's
// downloaded paper files
func AttachmentFolder(notePath string) string {
	base := strings.TrimSuffix(path.Base(notePath), path.Ext(notePath))
	return path.Join(path.Dir(notePath), base)
}

// HTMLPath returns the saved HTML location for arxivID next to notePath
func HTMLPath(notePath, arxivID string) string {
	return path.Join(AttachmentFolder(notePath), arxivID+".html")
}

// PDFPath returns the saved PDF location for arxivID next to notePath
func PDFPath(notePath, arxivID string) string {
	return path.Join(AttachmentFolder(notePath), arxivID+".pdf")
}
