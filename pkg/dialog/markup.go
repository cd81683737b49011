package dialog

import "regexp"

var emphasis = regexp.MustCompile(`\*([^*]+)\*`)

// StripEmphasis removes single-asterisk emphasis, keeping the wrapped
// text: "*winks*" becomes "winks".
func StripEmphasis(text string) string {
	return emphasis.ReplaceAllString(text, "$1")
}
