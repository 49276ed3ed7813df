package notes

import (
	"strings"

	"github.com/ternarybob/paperextractor/internal/common"
)

// URLPlaceholder is replaced with the paper URL when a note is created from a template
const URLPlaceholder = "{{url}}"

// InjectURL fills every URL placeholder in template with url
func InjectURL(template, url string) (string, error) {
	if !strings.Contains(template, URLPlaceholder) {
		return "", common.Errorf("TEMPLATE_URL_PLACEHOLDER_MISSING", "template has no %s placeholder", URLPlaceholder)
	}
	return strings.ReplaceAll(template, URLPlaceholder, url), nil
}

// DefaultTemplate is used when no template path is configured
const DefaultTemplate = "###### url_01: " + URLPlaceholder + "\n\n"
