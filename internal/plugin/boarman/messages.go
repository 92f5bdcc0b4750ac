package boarman

import (
	"regexp"

	"github.com/michaelbrown/boarman/internal/apperr"
)

const (
	MsgNoHandle    = "I couldn't find a Twitter handle in your message. Please share it starting with @, like @example."
	MsgUnavailable = "I apologize, but I'm having trouble accessing Twitter at the moment."
)

var handlePattern = regexp.MustCompile(`@(\w+)`)

// ExtractHandle returns the first @handle in text, without the @.
func ExtractHandle(text string) (string, bool) {
	m := handlePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// UserMessage maps an error kind to the text shown to the user.
func UserMessage(kind apperr.Kind) string {
	if kind == apperr.KindValidation {
		return MsgNoHandle
	}
	return MsgUnavailable
}
