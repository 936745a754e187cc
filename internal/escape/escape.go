// Package escape provides HL7 escape sequence encoding and decoding.
//
// HL7 v2.x uses escape sequences to encode special characters within field values.
// This package handles the standard escape sequences defined in the HL7 specification:
//
//   - \F\ - Field separator (|)
//   - \S\ - Component separator (^)
//   - \T\ - Subcomponent separator (&)
//   - \R\ - Repetition separator (~)
//   - \E\ - Escape character (\)
//   - \Xdd...\ - Hexadecimal encoded data
//   - \.br\ - Line break
package escape

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Raster-Lab/hl7kit/hl7"
)

// RecoveryMode controls how Unescape and UnescapeWithDiagnostics react to a
// malformed \Xdd...\ hex escape (an odd number of hex digits).
type RecoveryMode int

const (
	// RecoveryStrict leaves a malformed hex escape undecoded and reports it
	// at error severity. This is the default.
	RecoveryStrict RecoveryMode = iota

	// RecoveryBestEffort truncates the trailing unpaired hex digit and
	// decodes what remains, reporting the truncation at warning severity.
	RecoveryBestEffort
)

// Option configures an Escaper.
type Option func(*Escaper)

// WithRecoveryMode sets how malformed hex escapes are handled.
func WithRecoveryMode(mode RecoveryMode) Option {
	return func(e *Escaper) { e.recovery = mode }
}

// Escaper handles HL7 escape sequence encoding and decoding.
type Escaper struct {
	delims   *hl7.Delimiters
	recovery RecoveryMode
}

// New creates a new Escaper with the given delimiters.
// If delims is nil, default delimiters are used.
func New(delims *hl7.Delimiters, opts ...Option) *Escaper {
	if delims == nil {
		delims = hl7.DefaultDelimiters()
	}
	e := &Escaper{delims: delims}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Delimiters returns the delimiter configuration used by this escaper,
// satisfying hl7.Escaper.
func (e *Escaper) Delimiters() *hl7.Delimiters {
	return e.delims
}

var _ hl7.Escaper = (*Escaper)(nil)

// Escape encodes special characters in the value using HL7 escape sequences.
// Characters that require escaping:
//   - Field separator -> \F\
//   - Component separator -> \S\
//   - Subcomponent separator -> \T\
//   - Repetition separator -> \R\
//   - Escape character -> \E\
func (e *Escaper) Escape(value string) string {
	if value == "" {
		return value
	}

	esc := e.delims.Escape

	// Pre-calculate if we need to escape anything
	needsEscape := false
	for _, r := range value {
		if r == e.delims.Field || r == e.delims.Component ||
			r == e.delims.SubComponent || r == e.delims.Repetition ||
			r == esc {
			needsEscape = true
			break
		}
	}

	if !needsEscape {
		return value
	}

	var sb strings.Builder
	sb.Grow(len(value) * 2) // Rough estimate for escaped output

	for _, r := range value {
		switch r {
		case esc:
			// Escape character -> \E\
			sb.WriteRune(esc)
			sb.WriteRune('E')
			sb.WriteRune(esc)
		case e.delims.Field:
			// Field separator -> \F\
			sb.WriteRune(esc)
			sb.WriteRune('F')
			sb.WriteRune(esc)
		case e.delims.Component:
			// Component separator -> \S\
			sb.WriteRune(esc)
			sb.WriteRune('S')
			sb.WriteRune(esc)
		case e.delims.SubComponent:
			// Subcomponent separator -> \T\
			sb.WriteRune(esc)
			sb.WriteRune('T')
			sb.WriteRune(esc)
		case e.delims.Repetition:
			// Repetition separator -> \R\
			sb.WriteRune(esc)
			sb.WriteRune('R')
			sb.WriteRune(esc)
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// Unescape decodes HL7 escape sequences in the value.
// Supported escape sequences:
//   - \F\ -> Field separator
//   - \S\ -> Component separator
//   - \T\ -> Subcomponent separator
//   - \R\ -> Repetition separator
//   - \E\ -> Escape character
//   - \Xdd...\ -> Hexadecimal data (dd are hex digits)
//   - \.br\ -> Line break (\n)
//
// Malformed escape sequences (unclosed or unrecognized) are passed through unchanged.
func (e *Escaper) Unescape(value string) string {
	decoded, _ := e.UnescapeWithDiagnostics(value, nil)
	return decoded
}

// UnescapeWithDiagnostics decodes HL7 escape sequences in value exactly as
// Unescape does, additionally reporting malformed or unrecognized sequences.
// loc, if non-nil, is attached to every diagnostic produced so callers that
// know the field/component/subcomponent being decoded can locate the
// problem; it is otherwise left nil.
//
// An unrecognized-but-well-formed sequence (e.g. \Z\) is preserved verbatim
// and reported at warning severity. A malformed \Xdd...\ hex escape (an odd
// number of hex digits) is reported at error severity unless the Escaper
// was constructed with WithRecoveryMode(RecoveryBestEffort), in which case
// the trailing digit is dropped, the remainder is decoded, and the
// truncation is reported at warning severity instead.
func (e *Escaper) UnescapeWithDiagnostics(value string, loc *hl7.Location) (string, hl7.Diagnostics) {
	if value == "" {
		return value, nil
	}

	esc := e.delims.Escape

	if !strings.ContainsRune(value, esc) {
		return value, nil
	}

	var sb strings.Builder
	sb.Grow(len(value))

	var diags hl7.Diagnostics
	runes := []rune(value)
	i := 0

	for i < len(runes) {
		if runes[i] != esc {
			sb.WriteRune(runes[i])
			i++
			continue
		}

		seq, length, diag := e.parseEscapeSequence(runes, i, loc)
		if length > 0 {
			sb.WriteString(seq)
			i += length
			if diag != nil {
				diags = append(diags, *diag)
			}
		} else {
			// Not a valid escape sequence, output the escape character as-is
			sb.WriteRune(runes[i])
			i++
		}
	}

	return sb.String(), diags
}

// parseEscapeSequence attempts to parse an escape sequence starting at
// position i, returning the decoded string, the number of runes consumed,
// and a diagnostic if the sequence was malformed or unrecognized. loc is
// attached to the diagnostic verbatim. Returns ("", 0, nil) if no closing
// escape character can be found at all, in which case the caller treats
// the leading escape character as a literal.
func (e *Escaper) parseEscapeSequence(runes []rune, i int, loc *hl7.Location) (string, int, *hl7.Diagnostic) {
	esc := e.delims.Escape

	// Minimum escape sequence is 3 characters: \X\
	if i+2 >= len(runes) {
		return "", 0, nil
	}

	// Find the closing escape character
	closeIdx := -1
	for j := i + 1; j < len(runes); j++ {
		if runes[j] == esc {
			closeIdx = j
			break
		}
	}

	if closeIdx == -1 {
		// No closing escape character found
		return "", 0, nil
	}

	// Extract the content between escape characters
	content := string(runes[i+1 : closeIdx])
	length := closeIdx - i + 1

	// Handle standard single-character escape codes
	if len(content) == 1 {
		switch content[0] {
		case 'F':
			return string(e.delims.Field), length, nil
		case 'S':
			return string(e.delims.Component), length, nil
		case 'T':
			return string(e.delims.SubComponent), length, nil
		case 'R':
			return string(e.delims.Repetition), length, nil
		case 'E':
			return string(esc), length, nil
		}
	}

	// Handle hex encoding: \Xdd...\
	if len(content) >= 2 && (content[0] == 'X' || content[0] == 'x') {
		hexStr := content[1:]
		if len(hexStr)%2 != 0 {
			if e.recovery == RecoveryBestEffort {
				truncated := hexStr[:len(hexStr)-1]
				if decoded, err := e.decodeHex(truncated); err == nil {
					return decoded, length, &hl7.Diagnostic{
						Severity: hl7.SeverityWarning,
						Code:     hl7.CodeMalformedEscape,
						Location: loc,
						Message:  fmt.Sprintf("hex escape \\X%s\\ has an odd digit count, truncated last digit to recover", hexStr),
					}
				}
			}
			return string(runes[i : closeIdx+1]), length, &hl7.Diagnostic{
				Severity: hl7.SeverityError,
				Code:     hl7.CodeMalformedEscape,
				Location: loc,
				Message:  fmt.Sprintf("hex escape \\X%s\\ has an odd digit count", hexStr),
			}
		}
		decoded, err := e.decodeHex(hexStr)
		if err == nil {
			return decoded, length, nil
		}
		return string(runes[i : closeIdx+1]), length, &hl7.Diagnostic{
			Severity: hl7.SeverityError,
			Code:     hl7.CodeMalformedEscape,
			Location: loc,
			Message:  fmt.Sprintf("hex escape \\X%s\\ is invalid: %v", hexStr, err),
		}
	}

	// Handle line break: \.br\
	if content == ".br" {
		return "\n", length, nil
	}

	// Handle other formatting escape sequences
	// These are less common but defined in the spec
	switch content {
	case ".sp":
		// Spacing - typically ignored or treated as space
		return " ", length, nil
	case ".fi":
		// Start word wrap - typically ignored
		return "", length, nil
	case ".nf":
		// End word wrap - typically ignored
		return "", length, nil
	case ".in":
		// Indent - typically ignored
		return "", length, nil
	case ".ti":
		// Temporary indent - typically ignored
		return "", length, nil
	case ".sk":
		// Skip line - treat as newline
		return "\n", length, nil
	case ".ce":
		// Center - typically ignored
		return "", length, nil
	}

	// Unrecognized escape sequence - preserve verbatim, but flag it
	return string(runes[i : closeIdx+1]), length, &hl7.Diagnostic{
		Severity: hl7.SeverityWarning,
		Code:     hl7.CodeMalformedEscape,
		Location: loc,
		Message:  fmt.Sprintf("unrecognized escape sequence %q preserved verbatim", content),
	}
}

// decodeHex decodes a hexadecimal string into its byte representation.
// The hex string should contain pairs of hex digits representing bytes.
func (e *Escaper) decodeHex(hexStr string) (string, error) {
	// Hex string must have even length
	if len(hexStr)%2 != 0 {
		return "", hex.ErrLength
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}

	// Validate that the decoded bytes form valid UTF-8
	if utf8.Valid(decoded) {
		return string(decoded), nil
	}

	// For invalid UTF-8, return the raw bytes as a string
	// This preserves binary data that might be intentionally non-UTF-8
	return string(decoded), nil
}

// EncodeHex encodes a string as a hexadecimal escape sequence.
// Returns the hex-encoded string in the format \Xdd...\
func (e *Escaper) EncodeHex(value string) string {
	if value == "" {
		return value
	}

	esc := e.delims.Escape
	hexStr := hex.EncodeToString([]byte(value))

	var sb strings.Builder
	sb.WriteRune(esc)
	sb.WriteRune('X')
	sb.WriteString(strings.ToUpper(hexStr))
	sb.WriteRune(esc)

	return sb.String()
}
