package logging

import "log/slog"

// Secret represents a value that must never appear in log output.
// Every textual rendering of it yields the spoiler string.
type Secret string

// Spoiler is what a Secret renders as, everywhere.
const Spoiler = "*****"

// String implements fmt.Stringer, always returning the spoiler.
func (s Secret) String() string {
	return Spoiler
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return Spoiler
}

// LogValue implements slog.LogValuer so structured logs get the spoiler too.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(Spoiler)
}

// Reveal returns the underlying value. The only sanctioned way to read it.
func (s Secret) Reveal() string {
	return string(s)
}
