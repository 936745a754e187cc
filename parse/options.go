// Package parse provides HL7 v2.x message parsing functionality.
package parse

import "github.com/Raster-Lab/hl7kit/hl7"

// Default parser configuration values.
const (
	defaultMaxSegments    = 1000  // DoS protection: maximum segments per message
	defaultMaxFieldLength = 65536 // DoS protection: maximum field length in bytes
)

// Strategy selects the tokenization algorithm a Parser uses. Every strategy
// produces the same Node Model; they differ in how eagerly they build it
// and how much of the input they hold in memory at once.
type Strategy int

const (
	// StrategyEager parses the entire message into the Node Model before
	// returning, exactly as the original (pre-strategy) parser always did.
	StrategyEager Strategy = iota
	// StrategyLazy defers per-segment field/component splitting until a
	// caller actually navigates into that segment.
	StrategyLazy
	// StrategyStreaming parses the segments of the message concurrently on
	// a bounded worker pool and adds them to the Message in original order.
	// Like every strategy it takes the whole message as one []byte; it does
	// not read from an io.Reader and returns nothing until every segment is
	// parsed (NewScanner is the io.Reader entry point).
	StrategyStreaming
	// StrategyChunked parses the message in fixed-size segment batches
	// (see WithChunkSize), one batch after another. Every parsed segment
	// stays in the returned Message, so it holds as much in memory as
	// StrategyEager.
	StrategyChunked
	// StrategyIndexed defers content parsing to first access exactly as
	// StrategyLazy does. It also builds a segment-id-to-position map during
	// the initial pass, but that map is not kept: lookups on the returned
	// Message do not use it and cost the same as under StrategyLazy.
	StrategyIndexed
)

func (s Strategy) String() string {
	switch s {
	case StrategyEager:
		return "eager"
	case StrategyLazy:
		return "lazy"
	case StrategyStreaming:
		return "streaming"
	case StrategyChunked:
		return "chunked"
	case StrategyIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// ErrorRecovery selects how ParseContext reacts to a segment that fails to
// parse.
type ErrorRecovery int

const (
	// ErrorRecoveryStrict aborts parsing at the first error, exactly as
	// the original (pre-ErrorRecovery) parser always did.
	ErrorRecoveryStrict ErrorRecovery = iota
	// ErrorRecoverySkipInvalidSegments drops the offending segment,
	// records a diagnostic, and continues parsing the rest of the
	// message.
	ErrorRecoverySkipInvalidSegments
	// ErrorRecoveryBestEffort behaves like ErrorRecoverySkipInvalidSegments:
	// it drops the offending segment whole, records a diagnostic, and
	// continues. No fields of the failed segment are salvaged.
	ErrorRecoveryBestEffort
)

// StreamingConfig configures StrategyStreaming.
type StreamingConfig struct {
	BufferSize    int
	MaxPoolSize   int
	AutoGrow      bool
	MaxBufferSize int
}

// defaultStreamingWorkers is how many segments StrategyStreaming parses
// concurrently when StreamingConfig.BufferSize is left at zero.
const defaultStreamingWorkers = 4

// defaultChunkSize is how many segments StrategyChunked parses per batch
// when WithChunkSize is left at zero.
const defaultChunkSize = 64

// parserConfig holds the parser configuration.
type parserConfig struct {
	strictMode           bool            // Enable strict parsing mode
	allowEmptySegments   bool            // Allow empty segments in messages
	customDelimiters     *hl7.Delimiters // Use custom delimiters instead of extracting from MSH
	maxSegments          int             // Maximum segments allowed (DoS protection)
	maxFieldLength       int             // Maximum field length allowed (DoS protection)
	segmentTerminator    rune            // Segment terminator character (default CR)
	strategy             Strategy
	streaming            StreamingConfig
	chunkSize            int // segments per batch under StrategyChunked
	maxMessageSize       int // 0 means unbounded
	allowCustomSegments  bool
	encoding             hl7.CharsetCode
	autoDetectDelimiters bool
	errorRecovery        ErrorRecovery
	respectHeaderCharset bool
	validateEncoding     bool
}

// defaultConfig returns a parser configuration with default values.
func defaultConfig() parserConfig {
	return parserConfig{
		strictMode:           false,
		allowEmptySegments:   false,
		customDelimiters:     nil,
		maxSegments:          defaultMaxSegments,
		maxFieldLength:       defaultMaxFieldLength,
		segmentTerminator:    hl7.SegmentTerminator,
		strategy:             StrategyEager,
		allowCustomSegments:  true,
		encoding:             hl7.CharsetASCII,
		autoDetectDelimiters: true,
		errorRecovery:        ErrorRecoveryStrict,
		respectHeaderCharset: true,
		validateEncoding:     false,
	}
}

// ParserOption is a functional option for configuring the parser.
type ParserOption func(*parserConfig)

// WithStrictMode enables or disables strict parsing mode.
// In strict mode, a blank line between segments is rejected with
// ErrEmptySegment unless WithAllowEmptySegments(true) is also set; strict
// mode changes nothing else.
func WithStrictMode(strict bool) ParserOption {
	return func(c *parserConfig) {
		c.strictMode = strict
	}
}

// WithAllowEmptySegments configures whether empty segments are allowed.
// An empty segment is a blank (empty or whitespace-only) line between
// segment terminators. When enabled, such lines are skipped. When disabled,
// strict mode rejects them with ErrEmptySegment and non-strict mode skips
// them.
func WithAllowEmptySegments(allow bool) ParserOption {
	return func(c *parserConfig) {
		c.allowEmptySegments = allow
	}
}

// WithCustomDelimiters sets custom delimiters for parsing.
// When set, the parser will use these delimiters instead of extracting
// them from the MSH segment. This is useful for parsing non-standard
// messages or message fragments.
func WithCustomDelimiters(d *hl7.Delimiters) ParserOption {
	return func(c *parserConfig) {
		c.customDelimiters = d
	}
}

// WithMaxSegments sets the maximum number of segments allowed in a message.
// This is a DoS protection mechanism to prevent processing of maliciously
// large messages. Default is 1000.
func WithMaxSegments(limit int) ParserOption {
	return func(c *parserConfig) {
		if limit > 0 {
			c.maxSegments = limit
		}
	}
}

// WithMaxFieldLength sets the maximum field length allowed.
// This is a DoS protection mechanism to prevent processing of messages
// with excessively large fields. Default is 65536 bytes.
func WithMaxFieldLength(limit int) ParserOption {
	return func(c *parserConfig) {
		if limit > 0 {
			c.maxFieldLength = limit
		}
	}
}

// WithSegmentTerminator sets the segment terminator character.
// The default is carriage return (CR, 0x0D) as per HL7 standard.
// Some implementations use line feed (LF, 0x0A) or other characters.
func WithSegmentTerminator(term rune) ParserOption {
	return func(c *parserConfig) {
		c.segmentTerminator = term
	}
}

// WithStrategy selects the tokenization strategy. The default is
// StrategyEager.
func WithStrategy(s Strategy) ParserOption {
	return func(c *parserConfig) {
		c.strategy = s
	}
}

// WithStreamingConfig configures StrategyStreaming. Only BufferSize is read:
// it sets how many segments are parsed concurrently (defaultStreamingWorkers
// when zero). MaxPoolSize, AutoGrow and MaxBufferSize have no effect.
// Has no effect unless WithStrategy(StrategyStreaming) is also set.
func WithStreamingConfig(sc StreamingConfig) ParserOption {
	return func(c *parserConfig) {
		c.streaming = sc
	}
}

// WithChunkSize sets the number of segments StrategyChunked parses per
// batch before moving to the next. Has no effect under other strategies.
// 0 (the default) uses defaultChunkSize.
func WithChunkSize(n int) ParserOption {
	return func(c *parserConfig) {
		c.chunkSize = n
	}
}

// WithMaxMessageBytes rejects input larger than limit bytes with
// ErrMessageTooLarge before any parsing work begins. 0 (the default)
// leaves the message size unbounded at this layer (maxSegments and
// maxFieldLength still apply). The Scanner's own limit is set with
// WithMaxMessageSize.
func WithMaxMessageBytes(limit int) ParserOption {
	return func(c *parserConfig) {
		c.maxMessageSize = limit
	}
}

// WithAllowCustomSegments controls whether non-standard three-letter
// segment ids (ids for which hl7.IsWellKnown reports false) are admitted.
// The default is true.
func WithAllowCustomSegments(allow bool) ParserOption {
	return func(c *parserConfig) {
		c.allowCustomSegments = allow
	}
}

// WithEncoding sets the character set assumed when the header's
// character-set field is absent or ignored (see WithRespectHeaderCharset).
// The parser does not decode input with it; the value is only compared
// with the header's declared set when WithValidateEncoding is enabled.
func WithEncoding(code hl7.CharsetCode) ParserOption {
	return func(c *parserConfig) {
		c.encoding = code
	}
}

// WithAutoDetectDelimiters controls whether the parser derives delimiters
// from the message's own header (MSH/BHS/FHS) rather than always using
// WithCustomDelimiters or the package defaults. Default true.
func WithAutoDetectDelimiters(auto bool) ParserOption {
	return func(c *parserConfig) {
		c.autoDetectDelimiters = auto
	}
}

// WithErrorRecovery selects how ParseContext reacts to a segment that
// fails to parse. Default ErrorRecoveryStrict.
func WithErrorRecovery(mode ErrorRecovery) ParserOption {
	return func(c *parserConfig) {
		c.errorRecovery = mode
	}
}

// WithRespectHeaderCharset controls whether the header's declared
// character set (MSH-18/BHS-18/FHS-18) takes precedence over
// WithEncoding. Default true.
func WithRespectHeaderCharset(respect bool) ParserOption {
	return func(c *parserConfig) {
		c.respectHeaderCharset = respect
	}
}

// WithValidateEncoding enables emitting a mismatch diagnostic when the
// header's declared character set disagrees with the configured default.
// Default false.
func WithValidateEncoding(validate bool) ParserOption {
	return func(c *parserConfig) {
		c.validateEncoding = validate
	}
}
