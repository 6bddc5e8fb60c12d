package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxMessageLength is the limit on invitation messages after sanitization.
const maxMessageLength = 500

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// sanitizeMessage strips markup from a free-text invitation message and
// enforces the length limit. The message is optional, so empty input is fine.
func sanitizeMessage(message string) (string, error) {
	message = markupPattern.ReplaceAllString(message, "")
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxMessageLength {
		return "", ErrMessageTooLong
	}
	return message, nil
}
