package hl7

import (
	"unicode/utf8"
)

// CharsetCode identifies a character set the way HL7 Table 0211 names it in
// MSH-18 (or BHS-18/FHS-18).
type CharsetCode string

// Recognized HL7 Table 0211 character-set codes.
const (
	CharsetASCII       CharsetCode = "ASCII"
	CharsetUnicodeUTF8 CharsetCode = "UNICODE UTF-8"
	CharsetISO88591    CharsetCode = "8859/1"
	CharsetISO88592    CharsetCode = "8859/2"
	CharsetISO88595    CharsetCode = "8859/5"
	CharsetISO88596    CharsetCode = "8859/6"
	CharsetISO88597    CharsetCode = "8859/7"
	CharsetISO88598    CharsetCode = "8859/8"
	CharsetISO88599    CharsetCode = "8859/9"
	CharsetISOIR6      CharsetCode = "ISO IR6"
	CharsetISOIR87     CharsetCode = "ISO IR87"
	CharsetISOIR159    CharsetCode = "ISO IR159"
	CharsetISOIR192    CharsetCode = "ISO IR192"
	CharsetGB18030     CharsetCode = "GB 18030"
	CharsetKSX1001     CharsetCode = "KS X 1001"
	CharsetCNS11643    CharsetCode = "CNS 11643"
	CharsetBIG5        CharsetCode = "BIG-5"
)

// CharsetDecoder decodes raw message bytes in a known character set into a
// Go string. Implementations must not assume input is valid UTF-8.
type CharsetDecoder interface {
	// Decode converts raw bytes in this character set to a UTF-8 string.
	Decode(raw []byte) (string, error)

	// Code returns the Table 0211 code this decoder implements.
	Code() CharsetCode
}

// utf8Decoder passes bytes through unchanged, replacing invalid sequences
// with utf8.RuneError the way the standard library's string conversion
// does. It backs every registry entry for which no byte-transforming
// decoder is registered, which in practice means every single-byte
// Western/Unicode code. It does not transcode: bytes of a single-byte set
// above 0x7F are read as UTF-8 and, where invalid, become utf8.RuneError.
type utf8Decoder struct {
	code CharsetCode
}

func (d utf8Decoder) Code() CharsetCode { return d.code }

func (d utf8Decoder) Decode(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	// Best effort: re-encode rune by rune, substituting the replacement
	// character for invalid sequences rather than failing the parse.
	out := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		out = append(out, r)
		i += size
	}
	return string(out), nil
}

// CharsetRegistry maps HL7 Table 0211 codes to CharsetDecoders. The zero
// value is not usable; construct one with NewCharsetRegistry.
type CharsetRegistry struct {
	decoders map[CharsetCode]CharsetDecoder
}

// NewCharsetRegistry returns a registry pre-populated with a decoder for
// every Table 0211 code this package recognizes. Every entry currently
// resolves to a best-effort UTF-8 passthrough: the pack this engine was
// grounded on does not import golang.org/x/text, so true single-byte
// (ISO-8859-*) and multi-byte (GB 18030, Big5, KS X 1001) transcoding is
// left unimplemented rather than hand-rolled — RegisterDecoder lets a
// caller plug in a real transcoder for any code that needs one.
func NewCharsetRegistry() *CharsetRegistry {
	r := &CharsetRegistry{decoders: make(map[CharsetCode]CharsetDecoder)}
	for _, code := range []CharsetCode{
		CharsetASCII, CharsetUnicodeUTF8, CharsetISO88591, CharsetISO88592,
		CharsetISO88595, CharsetISO88596, CharsetISO88597, CharsetISO88598,
		CharsetISO88599, CharsetISOIR6, CharsetISOIR87, CharsetISOIR159,
		CharsetISOIR192, CharsetGB18030, CharsetKSX1001, CharsetCNS11643,
		CharsetBIG5,
	} {
		r.decoders[code] = utf8Decoder{code: code}
	}
	return r
}

// RegisterDecoder installs or replaces the decoder used for code.
func (r *CharsetRegistry) RegisterDecoder(code CharsetCode, d CharsetDecoder) {
	r.decoders[code] = d
}

// Lookup returns the decoder registered for code, if any.
func (r *CharsetRegistry) Lookup(code CharsetCode) (CharsetDecoder, bool) {
	d, ok := r.decoders[code]
	return d, ok
}

// Resolve decides which decoder governs a message given the header's
// declared charset (headerCode, which may be empty if the field was
// absent), the parser's configured default (configured), and whether the
// parser has been told to respect the header. It returns the decoder to
// use plus the diagnostics that resolution produced.
//
// Resolution rules (spec 4.3):
//   - if respectHeader is true and headerCode names a known charset, the
//     header wins
//   - if respectHeader is true and headerCode names an unknown charset, a
//     warning diagnostic is emitted and the configured default is used
//   - if respectHeader is false, the configured default always wins; a
//     mismatch diagnostic is emitted when the header disagreed with it
func (r *CharsetRegistry) Resolve(headerCode, configured CharsetCode, respectHeader bool) (CharsetDecoder, Diagnostics) {
	var diags Diagnostics

	fallback, ok := r.decoders[configured]
	if !ok {
		fallback = utf8Decoder{code: configured}
	}

	if headerCode == "" {
		return fallback, diags
	}

	headerDecoder, known := r.decoders[headerCode]
	if !known {
		diags = diags.Add(SeverityWarning, CodeUnsupportedCharset, nil,
			"character set recognized but not directly supported: "+string(headerCode))
		return fallback, diags
	}

	if !respectHeader {
		if headerCode != configured {
			diags = diags.Add(SeverityWarning, CodeCharsetMismatch, nil,
				"header declares "+string(headerCode)+" but parser is configured for "+string(configured))
		}
		return fallback, diags
	}

	return headerDecoder, diags
}

// ResolveRepeated handles MSH-18 repetitions: HL7 permits more than one
// character set to be declared, but only the first is used to decode body
// text. Subsequent entries are tolerated with an informational diagnostic.
func (r *CharsetRegistry) ResolveRepeated(headerCodes []CharsetCode, configured CharsetCode, respectHeader bool) (CharsetDecoder, Diagnostics) {
	var first CharsetCode
	if len(headerCodes) > 0 {
		first = headerCodes[0]
	}
	d, diags := r.Resolve(first, configured, respectHeader)
	if len(headerCodes) > 1 {
		diags = diags.Add(SeverityInfo, CodeMultiCharsetTolerated, nil,
			"multiple character sets declared; only the first was used to decode body text")
	}
	return d, diags
}
