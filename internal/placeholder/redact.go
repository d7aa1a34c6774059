package placeholder

import (
	"sort"
	"strings"
)

// Redact replaces every occurrence of the given literal values in code with
// the spoiler string. Literals are the values returned by Substitute; each
// is first stripped of surrounding quotes and un-escaped (the inverse of
// safe-literal formatting) to recover the raw form that may appear in
// unformatted output.
//
// Values are replaced longest-first so one value being a substring of
// another cannot corrupt the result. Redaction is idempotent.
func Redact(code string, literals []string) string {
	if len(literals) == 0 {
		return code
	}

	raws := make([]string, 0, len(literals))
	for _, literal := range literals {
		raw := strings.Trim(literal, `"`)
		raw = strings.ReplaceAll(raw, "\\n", "\n")
		if raw != "" {
			raws = append(raws, raw)
		}
	}

	sort.Slice(raws, func(i, j int) bool { return len(raws[i]) > len(raws[j]) })

	for _, raw := range raws {
		code = strings.ReplaceAll(code, raw, Spoiler)
	}

	return code
}
