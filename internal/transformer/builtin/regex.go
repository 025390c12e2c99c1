package builtin

import (
	"regexp"
	"strings"
)

// CompileRegex compiles a user pattern. Patterns use Go RE2 syntax, which
// covers the common JavaScript subset (classes, groups, alternation, named
// groups). Look-around and backreferences do not compile and make the rule a
// no-op.
func CompileRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

// TranslateReplacement converts a JavaScript replacement string into Go's
// regexp expansion template:
//
//	$&        whole match       -> ${0}
//	$1..$99   numbered group    -> ${1}..${99}
//	$<name>   named group       -> ${name}
//	$$        literal dollar    -> $$
//
// Any other dollar sign is literal.
func TranslateReplacement(js string) string {
	if !strings.Contains(js, "$") {
		return js
	}
	var sb strings.Builder
	sb.Grow(len(js) + 8)
	for i := 0; i < len(js); i++ {
		c := js[i]
		if c != '$' || i+1 >= len(js) {
			if c == '$' {
				sb.WriteString("$$")
			} else {
				sb.WriteByte(c)
			}
			continue
		}
		next := js[i+1]
		switch {
		case next == '$':
			sb.WriteString("$$")
			i++
		case next == '&':
			sb.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 2
			if j < len(js) && js[j] >= '0' && js[j] <= '9' {
				j++
			}
			if js[i+1:j] == "0" {
				// JavaScript has no group zero; "$0" is literal
				sb.WriteString("$$0")
			} else {
				sb.WriteString("${" + js[i+1:j] + "}")
			}
			i = j - 1
		case next == '<':
			end := strings.IndexByte(js[i+2:], '>')
			if end < 0 {
				sb.WriteString("$$")
				continue
			}
			sb.WriteString("${" + js[i+2:i+2+end] + "}")
			i += 2 + end
		default:
			sb.WriteString("$$")
		}
	}
	return sb.String()
}

// ReplaceAll substitutes every match of re in s using a Go expansion
// template (see TranslateReplacement).
func ReplaceAll(re *regexp.Regexp, s, template string) string {
	return re.ReplaceAllString(s, template)
}
