// Package placeholder implements the inline secret token engine: scanning
// arbitrary text for tokens of the form
//
//	#!cxtower.secret.GITHUB_TOKEN!#
//
// resolving them to values and substituting in place, plus redaction of
// resolved values out of derived output.
//
// The engine is pure: it performs no I/O of its own and is safe for
// concurrent use.
package placeholder

import "strings"

const (
	// Prefix and Terminator delimit a token. Chosen to be unlikely to
	// collide with ordinary text.
	Prefix     = "#!cxtower"
	Terminator = "!#"

	// Spoiler replaces secret values during redaction and masking.
	Spoiler = "*****"

	// NoValue is the textual form an unresolved token renders as. Explicit
	// on purpose: operators diagnosing a missing key should see it in the
	// rendered output instead of a crash or a bare gap.
	NoValue = "<no value>"
)

// Code composes the inline token for a kind and reference:
//
//	Code("secret", "GITHUB_TOKEN") == "#!cxtower.secret.GITHUB_TOKEN!#"
func Code(kind, reference string) string {
	return Prefix + "." + kind + "." + reference + Terminator
}

// Resolver returns the value for a parsed token. A false second return means
// "no value", which is valid and never an error. Errors are reserved for
// storage failures and propagate unchanged.
type Resolver func(kind, reference string) (string, bool, error)

// Options controls substitution formatting.
type Options struct {
	// SafeLiteral wraps each substituted value in double quotes and escapes
	// embedded line breaks so the value stays a syntactically valid
	// single-line literal inside generated interpreter code.
	SafeLiteral bool
}

// Extract returns the distinct token candidates in code, in order of first
// occurrence. A prefix with no terminator ahead of it is a false positive:
// the scan moves past it and continues rather than aborting.
func Extract(code string) []string {
	var tokens []string
	seen := make(map[string]bool)

	indexFrom := 0
	for {
		i := strings.Index(code[indexFrom:], Prefix)
		if i < 0 {
			break
		}
		start := indexFrom + i

		j := strings.Index(code[start:], Terminator)
		if j < 0 {
			indexFrom = start + len(Prefix)
			continue
		}
		end := start + j + len(Terminator)

		token := code[start:end]
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
		indexFrom = end
	}

	return tokens
}

// Parse splits a raw token into (kind, reference). Whitespace and the
// terminator are stripped; the remainder must be exactly three dot-separated
// parts with the prefix first. Malformed tokens yield ok == false and are
// otherwise ignored.
func Parse(token string) (kind, reference string, ok bool) {
	cleaned := strings.ReplaceAll(token, " ", "")
	cleaned = strings.ReplaceAll(cleaned, Terminator, "")

	parts := strings.Split(cleaned, ".")
	if len(parts) != 3 || parts[0] != Prefix {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// Substitute resolves every distinct token in code and replaces all of its
// occurrences. It returns the transformed text and the distinct literal
// values that were actually substituted; the literal list is the only
// information later available for redaction, so values that were never
// substituted are not included.
//
// Well-formed tokens with no value render as NoValue. Malformed tokens are
// left in place untouched.
func Substitute(code string, resolve Resolver, opts Options) (string, []string, error) {
	// Shortest possible token: prefix, two separators, one-symbol kind and
	// reference, terminator. Anything shorter cannot contain one.
	if len(code) <= len(Prefix)+3+len(Terminator) {
		return code, nil, nil
	}

	var literals []string

	for _, token := range Extract(code) {
		kind, reference, ok := Parse(token)
		if !ok {
			continue
		}

		value, found, err := resolve(kind, reference)
		if err != nil {
			return "", nil, err
		}

		replacement := NoValue
		if found {
			replacement = value
			if opts.SafeLiteral {
				// Quote and escape line breaks so the value remains a valid
				// single-line literal.
				replacement = `"` + replacement + `"`
				replacement = strings.ReplaceAll(replacement, "\n", "\\n")
			}
			if !contains(literals, replacement) {
				literals = append(literals, replacement)
			}
		}

		code = strings.ReplaceAll(code, token, replacement)
	}

	return code, literals, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
