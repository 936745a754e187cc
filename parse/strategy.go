// Package parse provides HL7 v2.x message parsing functionality.
package parse

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/Raster-Lab/hl7kit/hl7"
	"golang.org/x/sync/errgroup"
)

// segmentSpan is one segment's raw byte range discovered during the initial
// split pass, before any field-level parsing has happened.
type segmentSpan struct {
	index int
	name  string
	data  []byte
}

// spanName extracts the 3-letter segment id from raw segment bytes without
// parsing fields, so lazy and indexed strategies can classify a segment
// (custom-segment checks, MSH detection) before paying for a full parse.
func spanName(data []byte) string {
	if len(data) < 3 {
		return string(data)
	}
	return string(data[:3])
}

// lazySegment wraps raw segment bytes and defers field splitting (the
// hl7.ParseSegment call) until a caller touches anything beyond Name.
// Name is served from the raw bytes directly, so scanning a whole message
// for, say, its PID segment never pays to split fields in the segments it
// skips over.
type lazySegment struct {
	once   sync.Once
	data   []rune
	delims *hl7.Delimiters
	name   string

	inner   hl7.Segment
	parsErr error
}

func newLazySegment(data []rune, delims *hl7.Delimiters) *lazySegment {
	name := ""
	if len(data) >= 3 {
		name = string(data[:3])
	}
	return &lazySegment{data: data, delims: delims, name: name}
}

// materialize runs the real hl7.ParseSegment exactly once. Errors are
// cached and re-returned; a failed lazy segment behaves as an empty one to
// callers that don't check the error (matching hl7.Segment's "missing
// field returns false/empty" convention elsewhere).
func (l *lazySegment) materialize() hl7.Segment {
	l.once.Do(func() {
		seg, err := hl7.ParseSegment(l.data, l.delims)
		if err != nil {
			l.parsErr = err
			l.inner = hl7.NewSegment(l.name)
			return
		}
		l.inner = seg
	})
	return l.inner
}

// parseError returns the error encountered by the deferred ParseSegment
// call, if materialization has happened and it failed.
func (l *lazySegment) parseError() error {
	l.materialize()
	return l.parsErr
}

func (l *lazySegment) Name() string { return l.name }

func (l *lazySegment) Field(seq int) (hl7.Field, bool)    { return l.materialize().Field(seq) }
func (l *lazySegment) Fields(seq int) []hl7.Field         { return l.materialize().Fields(seq) }
func (l *lazySegment) AllFields() []hl7.Field             { return l.materialize().AllFields() }
func (l *lazySegment) FieldCount() int                    { return l.materialize().FieldCount() }
func (l *lazySegment) Get(location string) (string, error) { return l.materialize().Get(location) }
func (l *lazySegment) GetAll(location string) ([]string, error) {
	return l.materialize().GetAll(location)
}
func (l *lazySegment) Set(location, value string) error { return l.materialize().Set(location, value) }
func (l *lazySegment) SetField(seq int, field hl7.Field) error {
	return l.materialize().SetField(seq, field)
}
func (l *lazySegment) AddField(field hl7.Field) error       { return l.materialize().AddField(field) }
func (l *lazySegment) Bytes(delims *hl7.Delimiters) []byte  { return l.materialize().Bytes(delims) }
func (l *lazySegment) String() string                       { return l.materialize().String() }
func (l *lazySegment) FieldPresence(seq int) hl7.Presence    { return l.materialize().FieldPresence(seq) }
func (l *lazySegment) Clone() hl7.Segment                   { return l.materialize().Clone() }

var _ hl7.Segment = (*lazySegment)(nil)

// buildSpans splits raw segment byte slices (as produced by
// parser.splitSegments) into indexed spans, classifying each by its
// segment id. This is the "initial pass" both StrategyLazy and
// StrategyIndexed perform before deferring content parsing.
func buildSpans(segmentData [][]byte) []segmentSpan {
	spans := make([]segmentSpan, len(segmentData))
	for i, sd := range segmentData {
		spans[i] = segmentSpan{index: i, name: spanName(sd), data: sd}
	}
	return spans
}

// segmentIndex maps a segment id to the positions (in message order) of
// every segment carrying that id. StrategyIndexed builds this during its
// pre-scan; buildDeferred discards it, so Message lookups do not use it.
type segmentIndex map[string][]int

func buildSegmentIndex(spans []segmentSpan) segmentIndex {
	idx := make(segmentIndex, len(spans))
	for _, sp := range spans {
		idx[sp.name] = append(idx[sp.name], sp.index)
	}
	return idx
}

// parseSpanLazy turns a span into a lazySegment, performing none of the
// field-level work hl7.ParseSegment would do until first access.
func parseSpanLazy(sp segmentSpan, delims *hl7.Delimiters) hl7.Segment {
	return newLazySegment([]rune(string(sp.data)), delims)
}

// streamingResult is one segment's outcome from a concurrent streaming
// parse: either a ready-to-add Segment, or a diagnostic/skip/error to
// apply under the caller's ErrorRecovery policy.
type streamingResult struct {
	index int
	seg   hl7.Segment
	err   error
}

// parseStreaming parses spans concurrently, bounded by maxWorkers, and
// returns results in original segment order. Each segment's field split is
// independent of every other segment's, so this is where StrategyStreaming
// actually overlaps work instead of just reusing the eager loop: a pump of
// segments feeds a small worker pool via errgroup rather than blocking on
// one segment at a time.
// parseStreaming returns results indexed by position within spans (not by
// sp.index), since spans is frequently a filtered subset of the message's
// full segment list and sp.index would run past len(spans).
func parseStreaming(ctx context.Context, spans []segmentSpan, delims *hl7.Delimiters, maxWorkers int) ([]streamingResult, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	results := make([]streamingResult, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, sp := range spans {
		i, sp := i, sp
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			seg, err := hl7.ParseSegment([]rune(string(sp.data)), delims)
			results[i] = streamingResult{index: sp.index, seg: seg, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// chunkSpans partitions spans into fixed-size batches. StrategyChunked
// processes one batch at a time; every parsed segment is still added to
// the Message, so earlier batches stay live.
func chunkSpans(spans []segmentSpan, chunkSize int) [][]segmentSpan {
	if chunkSize <= 0 {
		chunkSize = 64
	}
	var chunks [][]segmentSpan
	for start := 0; start < len(spans); start += chunkSize {
		end := start + chunkSize
		if end > len(spans) {
			end = len(spans)
		}
		chunks = append(chunks, spans[start:end])
	}
	return chunks
}

// spanOutcome is what validateSpan decided for one segment before any
// hl7.ParseSegment call runs: proceed, skip silently, or stop with an
// error/diagnostic already attached.
type spanOutcome struct {
	skip bool
	diag *hl7.Diagnostic
	err  error
}

// validateSpan runs the cheap, strategy-independent checks every segment
// goes through regardless of tokenization strategy: empty-segment handling
// and the custom-segment-id allowlist. It never touches hl7.ParseSegment;
// the field-length DoS guard runs separately in checkFieldLengths.
func (p *parser) validateSpan(i int, sd []byte) spanOutcome {
	if len(bytes.TrimSpace(sd)) == 0 {
		if p.config.allowEmptySegments {
			return spanOutcome{skip: true}
		}
		if p.config.strictMode {
			return spanOutcome{err: &hl7.ParseError{Message: ErrEmptySegment.Error(), Line: i + 1}}
		}
		return spanOutcome{skip: true}
	}

	if !p.config.allowCustomSegments && len(sd) >= 3 && !hl7.IsWellKnown(string(sd[:3])) {
		loc := hl7.NewLocationFull(string(sd[:3]), i, -1, -1, -1, -1)
		diag := hl7.Diagnostic{Severity: hl7.SeverityWarning, Code: hl7.CodeUnknownSegment, Location: loc,
			Message: "segment id not recognized and custom segments are disabled: " + string(sd[:3])}
		if p.config.errorRecovery == ErrorRecoveryStrict {
			return spanOutcome{err: &hl7.ParseError{Message: diag.Message, Line: i + 1}}
		}
		return spanOutcome{skip: true, diag: &diag}
	}

	return spanOutcome{}
}

// checkCancellation reports ctx.Err wrapped in ErrContextCanceled, checked
// every 100 segments so long messages remain cancellable without paying a
// channel-select per segment.
func checkCancellation(ctx context.Context, i int) error {
	if i%100 != 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
	default:
		return nil
	}
}

// buildEager is StrategyEager: split, validate, and fully parse every
// segment in one pass, exactly as the original (pre-Strategy) parser did.
func (p *parser) buildEager(ctx context.Context, msg hl7.Message, segmentData [][]byte, delims *hl7.Delimiters, diags *hl7.Diagnostics) error {
	for i, sd := range segmentData {
		if err := checkCancellation(ctx, i); err != nil {
			return err
		}

		outcome := p.validateSpan(i, sd)
		if outcome.err != nil {
			return outcome.err
		}
		if outcome.diag != nil {
			*diags = append(*diags, *outcome.diag)
		}
		if outcome.skip {
			continue
		}

		if err := p.checkFieldLengths(sd, delims); err != nil {
			if handled, d := p.recoverSegmentError(i, err); handled {
				*diags = append(*diags, d)
				continue
			}
			return &hl7.ParseError{Message: err.Error(), Line: i + 1, Cause: err}
		}

		seg, err := hl7.ParseSegment([]rune(string(sd)), delims)
		if err != nil {
			if handled, d := p.recoverSegmentError(i, err); handled {
				*diags = append(*diags, d)
				continue
			}
			return &hl7.ParseError{Message: "failed to parse segment", Line: i + 1, Cause: err}
		}

		if err := msg.AddSegment(seg); err != nil {
			return &hl7.ParseError{Message: "failed to add segment", Line: i + 1, Cause: err}
		}
	}
	return nil
}

// buildDeferred implements StrategyLazy and StrategyIndexed. Both build the
// full list of segmentSpans up front (a byte-offset index, conceptually);
// StrategyIndexed additionally builds a segmentIndex (id -> positions)
// during that same pass, but discards it, so lookups cost the same under
// both strategies. Neither calls
// hl7.ParseSegment here: every segment added to msg is a *lazySegment that
// only splits fields the first time a caller asks for one, so a consumer
// that only ever reads MSH and PID never pays to parse OBX/NTE/etc.
//
// Because field splitting is deferred, a segment with internal malformed
// content is not caught at parse time under this strategy; the error
// surfaces on first access to that segment's fields instead.
func (p *parser) buildDeferred(ctx context.Context, msg hl7.Message, segmentData [][]byte, delims *hl7.Delimiters, diags *hl7.Diagnostics) error {
	spans := buildSpans(segmentData)
	if p.config.strategy == StrategyIndexed {
		_ = buildSegmentIndex(spans)
	}

	for _, sp := range spans {
		if err := checkCancellation(ctx, sp.index); err != nil {
			return err
		}

		outcome := p.validateSpan(sp.index, sp.data)
		if outcome.err != nil {
			return outcome.err
		}
		if outcome.diag != nil {
			*diags = append(*diags, *outcome.diag)
		}
		if outcome.skip {
			continue
		}

		if err := p.checkFieldLengths(sp.data, delims); err != nil {
			if handled, d := p.recoverSegmentError(sp.index, err); handled {
				*diags = append(*diags, d)
				continue
			}
			return &hl7.ParseError{Message: err.Error(), Line: sp.index + 1, Cause: err}
		}

		seg := parseSpanLazy(sp, delims)
		if err := msg.AddSegment(seg); err != nil {
			return &hl7.ParseError{Message: "failed to add segment", Line: sp.index + 1, Cause: err}
		}
	}
	return nil
}

// buildChunked implements StrategyChunked: spans are grouped into fixed-size
// batches (all sliced out by chunkSpans up front) and each batch is fully
// parsed and added to msg before the next batch starts.
func (p *parser) buildChunked(ctx context.Context, msg hl7.Message, segmentData [][]byte, delims *hl7.Delimiters, diags *hl7.Diagnostics) error {
	spans := buildSpans(segmentData)
	chunkSize := p.config.chunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	for _, chunk := range chunkSpans(spans, chunkSize) {
		for _, sp := range chunk {
			if err := checkCancellation(ctx, sp.index); err != nil {
				return err
			}

			outcome := p.validateSpan(sp.index, sp.data)
			if outcome.err != nil {
				return outcome.err
			}
			if outcome.diag != nil {
				*diags = append(*diags, *outcome.diag)
			}
			if outcome.skip {
				continue
			}

			if err := p.checkFieldLengths(sp.data, delims); err != nil {
				if handled, d := p.recoverSegmentError(sp.index, err); handled {
					*diags = append(*diags, d)
					continue
				}
				return &hl7.ParseError{Message: err.Error(), Line: sp.index + 1, Cause: err}
			}

			seg, err := hl7.ParseSegment([]rune(string(sp.data)), delims)
			if err != nil {
				if handled, d := p.recoverSegmentError(sp.index, err); handled {
					*diags = append(*diags, d)
					continue
				}
				return &hl7.ParseError{Message: "failed to parse segment", Line: sp.index + 1, Cause: err}
			}

			if err := msg.AddSegment(seg); err != nil {
				return &hl7.ParseError{Message: "failed to add segment", Line: sp.index + 1, Cause: err}
			}
		}
		// chunk's spans (and the []byte data they reference) are now
		// eligible for collection before the next batch is processed.
	}
	return nil
}

// buildStreaming implements StrategyStreaming: after the cheap per-segment
// validation pass, the surviving spans are fed through a bounded worker
// pool (golang.org/x/sync/errgroup) that runs hl7.ParseSegment concurrently
// across segments, then assembled back into msg in original order.
func (p *parser) buildStreaming(ctx context.Context, msg hl7.Message, segmentData [][]byte, delims *hl7.Delimiters, diags *hl7.Diagnostics) error {
	spans := buildSpans(segmentData)

	var toParse []segmentSpan
	for _, sp := range spans {
		if err := checkCancellation(ctx, sp.index); err != nil {
			return err
		}

		outcome := p.validateSpan(sp.index, sp.data)
		if outcome.err != nil {
			return outcome.err
		}
		if outcome.diag != nil {
			*diags = append(*diags, *outcome.diag)
		}
		if outcome.skip {
			continue
		}

		if err := p.checkFieldLengths(sp.data, delims); err != nil {
			if handled, d := p.recoverSegmentError(sp.index, err); handled {
				*diags = append(*diags, d)
				continue
			}
			return &hl7.ParseError{Message: err.Error(), Line: sp.index + 1, Cause: err}
		}

		toParse = append(toParse, sp)
	}

	workers := p.config.streaming.BufferSize
	if workers <= 0 {
		workers = defaultStreamingWorkers
	}

	results, err := parseStreaming(ctx, toParse, delims, workers)
	if err != nil {
		return &hl7.ParseError{Message: "streaming parse canceled", Cause: err}
	}

	for i, sp := range toParse {
		res := results[i]
		if res.err != nil {
			if handled, d := p.recoverSegmentError(sp.index, res.err); handled {
				*diags = append(*diags, d)
				continue
			}
			return &hl7.ParseError{Message: "failed to parse segment", Line: sp.index + 1, Cause: res.err}
		}
		if err := msg.AddSegment(res.seg); err != nil {
			return &hl7.ParseError{Message: "failed to add segment", Line: sp.index + 1, Cause: err}
		}
	}
	return nil
}
