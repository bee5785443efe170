// internal/types/sanitize.go
package types

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxMessageLength предельная длина сообщения об ошибке в рунах
	MaxMessageLength = 200
	// RedactionMarker подставляется вместо секретоподобных слов
	RedactionMarker = "[REDACTED]"
)

var secretPattern = regexp.MustCompile(`(?i)secret|private|mnemonic|key`)

// SanitizeMessage готовит текст ошибки для ответа и логов: секретоподобные
// подстроки заменяются маркером, пунктуация кроме _ - . : [ ] удаляется,
// пробелы схлопываются, длина ограничивается MaxMessageLength.
func SanitizeMessage(msg string) string {
	redacted := secretPattern.ReplaceAllString(msg, RedactionMarker)

	var b strings.Builder
	b.Grow(len(redacted))
	space := false
	for _, r := range redacted {
		switch {
		case unicode.IsSpace(r):
			if !space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = true
			continue
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune("_-.:[]", r):
			b.WriteRune(r)
		default:
			continue
		}
		space = false
	}

	out := []rune(strings.TrimSpace(b.String()))
	if len(out) > MaxMessageLength {
		out = out[:MaxMessageLength]
	}
	return string(out)
}

// SanitizeError удобная обёртка для nil-безопасного вызова.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}
