// Package parse provides HL7 v2.x message parsing functionality.
package parse

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Raster-Lab/hl7kit/hl7"
)

// MLLP (Minimal Lower Layer Protocol) framing bytes.
const (
	mllpStartByte = 0x0B // Vertical Tab (VT)
	mllpEndByte1  = 0x1C // File Separator (FS)
	mllpEndByte2  = 0x0D // Carriage Return (CR)
)

// Parser-specific errors.
var (
	// ErrTooManySegments is returned when the message exceeds maxSegments.
	ErrTooManySegments = errors.New("message exceeds maximum segment count")
	// ErrFieldTooLong is returned when a field exceeds maxFieldLength.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
	// ErrContextCanceled is returned when the parsing context is canceled.
	ErrContextCanceled = errors.New("parsing canceled")
	// ErrEmptySegment is returned when an empty segment is found and not allowed.
	ErrEmptySegment = errors.New("empty segment not allowed")
)

// Parser defines the interface for HL7 message parsing.
type Parser interface {
	// Parse parses raw HL7 message data into a Message.
	// The input data may include MLLP framing which will be stripped.
	Parse(data []byte) (hl7.Message, error)

	// ParseContext parses raw HL7 message data with context support.
	// Allows for cancellation during parsing of large messages.
	ParseContext(ctx context.Context, data []byte) (hl7.Message, error)

	// ParseWithDiagnostics behaves like ParseContext but also returns every
	// non-fatal Diagnostic accumulated while parsing (unknown segment ids,
	// charset mismatches, recovered segment errors under a non-strict
	// ErrorRecovery mode, and so on). The returned error is non-nil only
	// when parsing could not produce a usable Message at all.
	ParseWithDiagnostics(ctx context.Context, data []byte) (hl7.Message, hl7.Diagnostics, error)
}

// parser is the concrete implementation of Parser.
type parser struct {
	config parserConfig
}

// New creates a new Parser with the given options.
func New(opts ...ParserOption) Parser {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &parser{config: cfg}
}

// Parse parses raw HL7 message data into a Message.
func (p *parser) Parse(data []byte) (hl7.Message, error) {
	msg, _, err := p.ParseWithDiagnostics(context.Background(), data)
	return msg, err
}

// ParseContext parses raw HL7 message data with context support.
func (p *parser) ParseContext(ctx context.Context, data []byte) (hl7.Message, error) {
	msg, _, err := p.ParseWithDiagnostics(ctx, data)
	return msg, err
}

// ParseWithDiagnostics parses raw HL7 message data, accumulating
// non-fatal Diagnostics alongside the returned Message.
func (p *parser) ParseWithDiagnostics(ctx context.Context, data []byte) (hl7.Message, hl7.Diagnostics, error) {
	var diags hl7.Diagnostics

	// Check for cancellation at start
	select {
	case <-ctx.Done():
		return nil, diags, fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
	default:
	}

	// Strip MLLP framing if present
	data = stripMLLP(data)

	if p.config.maxMessageSize > 0 && len(data) > p.config.maxMessageSize {
		return nil, diags, fmt.Errorf("%w: got %d bytes, max %d", ErrMessageTooLarge, len(data), p.config.maxMessageSize)
	}

	// Validate non-empty (including whitespace-only input)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, diags, hl7.ErrEmptyMessage
	}

	// Get delimiters - either custom, auto-detected from the header, or
	// extracted with the strict MSH-only legacy path.
	delims, err := p.getDelimiters(data)
	if err != nil {
		return nil, diags, err
	}

	if p.config.validateEncoding {
		headerCode := p.headerCharset(data, delims)
		registry := hl7.NewCharsetRegistry()
		_, charsetDiags := registry.Resolve(headerCode, p.config.encoding, p.config.respectHeaderCharset)
		diags = append(diags, charsetDiags...)
	}

	// Split message into segment data
	segmentData := p.splitSegments(data)

	// Validate segment count
	if len(segmentData) > p.config.maxSegments {
		return nil, diags, fmt.Errorf("%w: got %d, max %d", ErrTooManySegments, len(segmentData), p.config.maxSegments)
	}

	// Create message with delimiters
	msg := hl7.NewMessageWithDelimiters(delims)

	// Build segments according to the configured tokenization Strategy.
	// Every strategy produces the same Node Model; they differ only in how
	// eagerly hl7.ParseSegment runs and how much of the input is held live
	// at once.
	var buildErr error
	switch p.config.strategy {
	case StrategyStreaming:
		buildErr = p.buildStreaming(ctx, msg, segmentData, delims, &diags)
	case StrategyChunked:
		buildErr = p.buildChunked(ctx, msg, segmentData, delims, &diags)
	case StrategyLazy, StrategyIndexed:
		buildErr = p.buildDeferred(ctx, msg, segmentData, delims, &diags)
	default:
		buildErr = p.buildEager(ctx, msg, segmentData, delims, &diags)
	}
	if buildErr != nil {
		return nil, diags, buildErr
	}

	// Validate MSH is first segment
	allSegs := msg.AllSegments()
	if len(allSegs) == 0 {
		return nil, diags, hl7.ErrMissingMSH
	}
	if allSegs[0].Name() != "MSH" {
		return nil, diags, hl7.ErrMissingMSH
	}

	return msg, diags, nil
}

// recoverSegmentError applies the configured ErrorRecovery mode to a
// segment-level parse failure. It reports handled=true when the mode
// permits continuing past the error (ErrorRecoverySkipInvalidSegments and
// ErrorRecoveryBestEffort both drop the whole segment; no partial fields
// are salvaged).
func (p *parser) recoverSegmentError(lineIdx int, cause error) (bool, hl7.Diagnostic) {
	if p.config.errorRecovery == ErrorRecoveryStrict {
		return false, hl7.Diagnostic{}
	}
	loc := hl7.NewLocationFull("", lineIdx, -1, -1, -1, -1)
	return true, hl7.Diagnostic{
		Severity: hl7.SeverityWarning,
		Code:     hl7.CodeMalformedField,
		Location: loc,
		Message:  "segment skipped after parse error: " + cause.Error(),
	}
}

// headerCharset extracts MSH-18 (the first repetition) from the raw
// message bytes, if present, for charset-mismatch diagnostics.
func (p *parser) headerCharset(data []byte, delims *hl7.Delimiters) hl7.CharsetCode {
	end := bytes.IndexRune(data, p.config.segmentTerminator)
	line := data
	if end >= 0 {
		line = data[:end]
	}
	fields := bytes.Split(line, []byte(string(delims.Field)))
	const mshCharsetField = 18
	if len(fields) <= mshCharsetField {
		return ""
	}
	raw := fields[mshCharsetField]
	if rep := bytes.IndexRune(raw, delims.Repetition); rep >= 0 {
		raw = raw[:rep]
	}
	return hl7.CharsetCode(raw)
}

// stripMLLP removes MLLP framing from the data if present.
// MLLP format: <VT>message<FS><CR> where VT=0x0B, FS=0x1C, CR=0x0D
func stripMLLP(data []byte) []byte {
	if len(data) == 0 {
		return data
	}

	// Check for start byte
	if data[0] == mllpStartByte {
		data = data[1:]
	}

	// Check for end bytes (FS CR)
	if len(data) >= 2 {
		if data[len(data)-2] == mllpEndByte1 && data[len(data)-1] == mllpEndByte2 {
			data = data[:len(data)-2]
		} else if data[len(data)-1] == mllpEndByte1 {
			// Some implementations only use FS without CR
			data = data[:len(data)-1]
		}
	}

	return data
}

// getDelimiters returns the delimiters to use for parsing.
func (p *parser) getDelimiters(data []byte) (*hl7.Delimiters, error) {
	if p.config.customDelimiters != nil {
		return p.config.customDelimiters, nil
	}
	if p.config.autoDetectDelimiters {
		return hl7.DetectDelimiters(data)
	}
	return hl7.ParseDelimiters(data)
}

// splitSegments splits message data into individual segment byte slices.
// Empty segments are included (as empty slices) so they can be detected during parsing.
func (p *parser) splitSegments(data []byte) [][]byte {
	terminator := byte(p.config.segmentTerminator)
	var segments [][]byte
	start := 0

	for i := 0; i < len(data); i++ {
		if data[i] == terminator {
			// Include segment (may be empty)
			segments = append(segments, data[start:i])
			start = i + 1
		}
	}

	// Handle last segment without terminator
	if start < len(data) {
		remaining := bytes.TrimSpace(data[start:])
		if len(remaining) > 0 {
			segments = append(segments, remaining)
		}
	}

	return segments
}

// checkFieldLengths validates that no field exceeds the maximum length.
func (p *parser) checkFieldLengths(segmentData []byte, delims *hl7.Delimiters) error {
	fieldDelim := byte(delims.Field)
	start := 0
	fieldNum := 0

	for i := 0; i <= len(segmentData); i++ {
		if i == len(segmentData) || segmentData[i] == fieldDelim {
			fieldLen := i - start
			if fieldLen > p.config.maxFieldLength {
				return fmt.Errorf("%w: field %d is %d bytes, max %d",
					ErrFieldTooLong, fieldNum, fieldLen, p.config.maxFieldLength)
			}
			start = i + 1
			fieldNum++
		}
	}

	return nil
}
