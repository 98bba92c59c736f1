package vars

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
)

// LoadEnvFile parses a dot-env file. Lines without a KEY= assignment are
// logged and skipped; values follow godotenv rules (${NAME} expansion,
// inline comments, verbatim single quotes).
func LoadEnvFile(path string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrEnvFile, path, err)
	}

	src, skipped := dropMalformedLines(string(data))
	for _, line := range skipped {
		logger.Warn("ignoring malformed line in env file", "path", path, "line", line)
	}

	m, err := godotenv.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrEnvFile, path, err)
	}
	return m, nil
}

// dropMalformedLines blanks bad lines and returns their 1-based numbers.
func dropMalformedLines(src string) (string, []int) {
	lines := strings.Split(src, "\n")
	var skipped []int
	var quote byte

	for i, line := range lines {
		if quote != 0 {
			if closesQuote(line, quote) {
				quote = 0
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(trimmed, "export "), "=")
		if !ok || !validKey(strings.TrimSpace(key)) {
			lines[i] = ""
			skipped = append(skipped, i+1)
			continue
		}

		value = strings.TrimSpace(value)
		if value != "" && (value[0] == '"' || value[0] == '\'') && !closesQuote(value[1:], value[0]) {
			quote = value[0]
		}
	}

	return strings.Join(lines, "\n"), skipped
}

func closesQuote(s string, quote byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == quote && (i == 0 || s[i-1] != '\\') {
			return true
		}
	}
	return false
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' && r != '.' {
			return false
		}
	}
	return true
}
