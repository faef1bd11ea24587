package channel

import (
	"regexp"
	"strings"
)

// Pattern is the matching rule for a subscription: either an exact type
// string or a compiled expression. The zero Pattern matches nothing.
type Pattern struct {
	exact string
	re    *regexp.Regexp
}

// Exact matches a message type by string equality.
func Exact(msgType string) Pattern {
	return Pattern{exact: msgType}
}

// Matches matches a message type against a compiled expression.
func Matches(re *regexp.Regexp) Pattern {
	return Pattern{re: re}
}

// Types builds an alternation over the given type list. An empty list
// matches nothing.
func Types(types ...string) Pattern {
	if len(types) == 0 {
		return Pattern{}
	}
	if len(types) == 1 {
		return Exact(types[0])
	}
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return Matches(regexp.MustCompile("^(?:" + strings.Join(quoted, "|") + ")$"))
}

// Match reports whether the pattern matches a message type.
func (p Pattern) Match(msgType string) bool {
	if p.re != nil {
		return p.re.MatchString(msgType)
	}
	return p.exact != "" && p.exact == msgType
}
