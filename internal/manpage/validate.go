package manpage

import "regexp"

// topicPattern accepts a page name optionally followed by dot-separated
// suffixes such as a section number or compression extension.
var topicPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+(\.[a-zA-Z0-9_]+)*$`)

// searchPattern accepts the characters needed to express an apropos
// regular expression and nothing else. Whitespace is Unicode whitespace
// (unicode.IsSpace) plus the ASCII separators U+001C..U+001F; RE2's \s alone
// only covers ASCII.
var searchPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\v\x{1c}-\x{1f}\x{85}\p{Z}.,:/'"()\[\]{}*+?|^$_\-]+$`)

// IsValidTopic reports whether s is an acceptable page name.
func IsValidTopic(s string) bool {
	return topicPattern.MatchString(s)
}

// IsValidSearchQuery reports whether s only contains characters allowed in a
// description search pattern.
func IsValidSearchQuery(s string) bool {
	return searchPattern.MatchString(s)
}
