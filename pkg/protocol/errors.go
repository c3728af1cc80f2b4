package protocol

import "errors"

// Codec failures wrap these kinds; use errors.Is or ErrorKind to classify.
// A malformed list entry also wraps ErrTruncatedInput.
var (
	ErrFraming             = errors.New("missing or short out-of-band marker")
	ErrUnknownCommand      = errors.New("unknown command")
	ErrTruncatedInput      = errors.New("truncated input")
	ErrMalformedEntry      = errors.New("malformed server list entry")
	ErrOddFieldCount       = errors.New("info string has a key without a value")
	ErrInvalidFieldContent = errors.New("invalid field content")
	ErrUnsupportedFamily   = errors.New("address family not supported by dialect")
	ErrDialectMismatch     = errors.New("message not defined in dialect")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrFraming, "framing"},
	{ErrUnknownCommand, "unknown_command"},
	{ErrMalformedEntry, "malformed_entry"},
	{ErrTruncatedInput, "truncated_input"},
	{ErrOddFieldCount, "odd_field_count"},
	{ErrInvalidFieldContent, "invalid_field_content"},
	{ErrUnsupportedFamily, "unsupported_family"},
	{ErrDialectMismatch, "dialect_mismatch"},
}

// ErrorKind returns a stable label for the kind of err, "" for nil and
// "other" for errors that did not come from this package.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
