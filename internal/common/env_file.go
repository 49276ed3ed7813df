package common

import (
	"bufio"
	"strings"
)

// ParseEnvContent parses .env style content into a key/value map.
// Format supported:
//   - KEY=value (split on the first '=')
//   - KEY="value" or KEY='value' (quotes stripped)
//   - # comments (lines starting with #)
//   - Empty lines are ignored
//
// Lines without '=' and empty keys are skipped. Later duplicates win.
func ParseEnvContent(content string) map[string]string {
	values := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values
}
