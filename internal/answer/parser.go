package answer

import (
	"regexp"
	"strconv"
	"strings"
)

// Method records how a selection was reached.
type Method string

const (
	MethodLetter    Method = "letter"
	MethodNumber    Method = "number"
	MethodSubstring Method = "substring"
	MethodFallback  Method = "fallback"
	MethodRandom    Method = "random"
	MethodVerbatim  Method = "verbatim"
)

// Selection is a validated index into an option set.
type Selection struct {
	Index  int    `json:"index"`
	Method Method `json:"method"`
}

var (
	letterToken = regexp.MustCompile(`\b[A-Z]\b`)
	numberToken = regexp.MustCompile(`\b(\d+)\b`)
)

// ParseLettered maps a reply to an option using the lettered protocol: the
// first standalone capital letter when in range, else the first option that
// contains or is contained by the reply, else the first option.
// options must be non-empty.
func ParseLettered(reply string, options []string) Selection {
	if m := letterToken.FindString(reply); m != "" {
		idx := int(m[0] - 'A')
		if idx < len(options) {
			return Selection{Index: idx, Method: MethodLetter}
		}
	}
	if idx, ok := containment(strings.ToLower(reply), options); ok {
		return Selection{Index: idx, Method: MethodSubstring}
	}
	return Selection{Index: 0, Method: MethodFallback}
}

// ParseLiteral maps a reply to an option using the literal-text protocol:
// the trimmed, lower-cased reply is matched by containment in either
// direction, first option in list order wins, else the first option.
func ParseLiteral(reply string, options []string) Selection {
	if idx, ok := containment(strings.ToLower(strings.TrimSpace(reply)), options); ok {
		return Selection{Index: idx, Method: MethodSubstring}
	}
	return Selection{Index: 0, Method: MethodFallback}
}

// ParseScale maps a reply to a scale of n points: the first standalone
// integer in [1, n] selects index value-1, anything else selects n/2.
func ParseScale(reply string, n int) Selection {
	if m := numberToken.FindStringSubmatch(reply); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v >= 1 && v <= n {
			return Selection{Index: v - 1, Method: MethodNumber}
		}
	}
	return ScaleFallback(n)
}

// ScaleFallback is the content-independent middle choice of an n-point scale.
func ScaleFallback(n int) Selection {
	return Selection{Index: n / 2, Method: MethodFallback}
}

// FirstOption is the no-match fallback of the lettered and literal protocols.
func FirstOption() Selection {
	return Selection{Index: 0, Method: MethodFallback}
}

// ParseFreeText returns the trimmed reply. Length is requested in the prompt
// and not enforced here.
func ParseFreeText(reply string) string {
	return strings.TrimSpace(reply)
}

func containment(reply string, options []string) (int, bool) {
	for i, opt := range options {
		o := strings.ToLower(opt)
		if strings.Contains(o, reply) || strings.Contains(reply, o) {
			return i, true
		}
	}
	return 0, false
}
