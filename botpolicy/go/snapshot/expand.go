package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedBraceExpressionError is returned when a bot_id entry contains a
// brace expansion that cannot be parsed.
type MalformedBraceExpressionError struct {
	// BotID is the offending bot_id entry, verbatim.
	BotID string
	// Reason describes what is wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *MalformedBraceExpressionError) Error() string {
	return fmt.Sprintf("bad bot_id expression %q: %s", e.BotID, e.Reason)
}

func malformed(id, format string, args ...interface{}) error {
	return &MalformedBraceExpressionError{
		BotID:  id,
		Reason: fmt.Sprintf(format, args...),
	}
}

// expandBotID materializes the brace expansion in a bot_id entry into the
// full list of literal bot IDs.
//
// An entry may contain at most one "{...}" span. The span holds either a
// comma-separated list of elements, e.g. "vm{100,150,200}-m1", or an
// inclusive range of two non-negative integers, e.g. "vm{1..3}-m1". The span
// is replaced by each element's textual form, preserving the surrounding
// literal text. An entry with no braces expands to itself.
func expandBotID(id string) ([]string, error) {
	open := strings.Index(id, "{")
	closing := strings.Index(id, "}")
	if open == -1 && closing == -1 {
		return []string{id}, nil
	}
	if open == -1 || closing == -1 || closing < open {
		return nil, malformed(id, "unbalanced braces")
	}
	prefix := id[:open]
	body := id[open+1 : closing]
	suffix := id[closing+1:]
	if strings.ContainsAny(suffix, "{}") || strings.Contains(body, "{") {
		return nil, malformed(id, "at most one {...} section is allowed")
	}
	if body == "" {
		return nil, malformed(id, "empty {...} section")
	}

	var elements []string
	if strings.Contains(body, "..") {
		bounds := strings.SplitN(body, "..", 2)
		lo, err := strconv.Atoi(bounds[0])
		if err != nil || lo < 0 {
			return nil, malformed(id, "%q is not a non-negative integer", bounds[0])
		}
		hi, err := strconv.Atoi(bounds[1])
		if err != nil || hi < 0 {
			return nil, malformed(id, "%q is not a non-negative integer", bounds[1])
		}
		if lo > hi {
			return nil, malformed(id, "range start %d is larger than range end %d", lo, hi)
		}
		elements = make([]string, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			elements = append(elements, strconv.Itoa(i))
		}
	} else {
		elements = strings.Split(body, ",")
		for _, el := range elements {
			if el == "" {
				return nil, malformed(id, "empty element in {...} section")
			}
		}
	}

	ret := make([]string, 0, len(elements))
	for _, el := range elements {
		ret = append(ret, prefix+el+suffix)
	}
	return ret, nil
}
