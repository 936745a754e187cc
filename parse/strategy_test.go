package parse

import (
	"context"
	"testing"

	"github.com/Raster-Lab/hl7kit/hl7"
)

// oruMulti carries enough OBX repetitions to exercise chunking and
// streaming across multiple batches/workers.
const oruMulti = "MSH|^~\\&|LAB|HOSPITAL|HIS|HOSPITAL|202301011200||ORU^R01|MSG100|P|2.5\r" +
	"PID|1||67890^^^MRN||Smith^Jane||19750515|F\r" +
	"OBR|1|ORD001|ACC001|CBC^Complete Blood Count\r" +
	"OBX|1|NM|WBC^White Blood Cell Count||7.5|10*3/uL|4.5-11.0|N|||F\r" +
	"OBX|2|NM|RBC^Red Blood Cell Count||4.8|10*6/uL|4.2-5.4|N|||F\r" +
	"OBX|3|NM|HGB^Hemoglobin||14.2|g/dL|13.5-17.5|N|||F\r"

func TestStrategies_ProduceEquivalentMessages(t *testing.T) {
	strategies := []struct {
		name     string
		strategy Strategy
	}{
		{name: "eager", strategy: StrategyEager},
		{name: "lazy", strategy: StrategyLazy},
		{name: "indexed", strategy: StrategyIndexed},
		{name: "chunked", strategy: StrategyChunked},
		{name: "streaming", strategy: StrategyStreaming},
	}

	for _, tt := range strategies {
		t.Run(tt.name, func(t *testing.T) {
			p := New(WithStrategy(tt.strategy))
			msg, diags, err := p.ParseWithDiagnostics(context.Background(), []byte(oruMulti))
			if err != nil {
				t.Fatalf("ParseWithDiagnostics() error = %v", err)
			}
			if len(diags) != 0 {
				t.Errorf("ParseWithDiagnostics() diagnostics = %v, want none", diags)
			}

			obxSegs := msg.Segments("OBX")
			if len(obxSegs) != 3 {
				t.Fatalf("Segments(OBX) = %d, want 3", len(obxSegs))
			}
			for i, want := range []string{"WBC", "RBC", "HGB"} {
				got, err := obxSegs[i].Get(".3.1")
				if err != nil {
					t.Fatalf("OBX[%d].Get(.3.1) error = %v", i, err)
				}
				if got != want {
					t.Errorf("OBX[%d].3.1 = %q, want %q", i, got, want)
				}
			}

			msh, ok := msg.Segment("MSH")
			if !ok {
				t.Fatal("missing MSH segment")
			}
			if got, _ := msh.Get(".10"); got != "MSG100" {
				t.Errorf("MSH.10 = %q, want MSG100", got)
			}
		})
	}
}

func TestLazyStrategy_DefersFieldSplitting(t *testing.T) {
	p := New(WithStrategy(StrategyLazy))
	msg, _, err := p.ParseWithDiagnostics(context.Background(), []byte(oruMulti))
	if err != nil {
		t.Fatalf("ParseWithDiagnostics() error = %v", err)
	}

	seg, ok := msg.Segment("OBX")
	if !ok {
		t.Fatal("missing OBX segment")
	}
	if _, ok := seg.(*lazySegment); !ok {
		t.Fatalf("OBX segment is %T under StrategyLazy, want *lazySegment", seg)
	}

	// Name is servable without materializing; field access still works
	// once requested.
	if seg.Name() != "OBX" {
		t.Errorf("Name() = %q, want OBX", seg.Name())
	}
	val, err := seg.Get(".3.1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "WBC" {
		t.Errorf("Get(.3.1) = %q, want WBC", val)
	}
}

func TestChunkedStrategy_RespectsChunkSize(t *testing.T) {
	p := New(WithStrategy(StrategyChunked), WithChunkSize(2))
	msg, _, err := p.ParseWithDiagnostics(context.Background(), []byte(oruMulti))
	if err != nil {
		t.Fatalf("ParseWithDiagnostics() error = %v", err)
	}
	if len(msg.AllSegments()) != 6 {
		t.Errorf("AllSegments() = %d, want 6", len(msg.AllSegments()))
	}
}

func TestStreamingStrategy_SkippedSegmentsDoNotPanic(t *testing.T) {
	// A custom (non-well-known) segment id with custom segments disabled
	// is skipped by validateSpan before ever reaching parseStreaming,
	// leaving a gap in the original segment index toParse must tolerate.
	msg := "MSH|^~\\&|LAB|HOSPITAL|HIS|HOSPITAL|202301011200||ORU^R01|MSG101|P|2.5\r" +
		"ZZZ|custom segment data\r" +
		"PID|1||67890^^^MRN||Smith^Jane||19750515|F\r" +
		"OBR|1|ORD001|ACC001|CBC^Complete Blood Count\r" +
		"OBX|1|NM|WBC^White Blood Cell Count||7.5|10*3/uL|4.5-11.0|N|||F\r"

	p := New(
		WithStrategy(StrategyStreaming),
		WithAllowCustomSegments(false),
		WithErrorRecovery(ErrorRecoverySkipInvalidSegments),
	)
	got, diags, err := p.ParseWithDiagnostics(context.Background(), []byte(msg))
	if err != nil {
		t.Fatalf("ParseWithDiagnostics() error = %v", err)
	}
	if len(diags) == 0 {
		t.Error("expected a diagnostic for the skipped custom segment")
	}
	if _, ok := got.Segment("ZZZ"); ok {
		t.Error("custom segment ZZZ should have been skipped, not added")
	}
	if _, ok := got.Segment("OBX"); !ok {
		t.Error("OBX segment missing after streaming parse with a preceding skip")
	}
}

func TestStreamingStrategy_WorkerCountFromStreamingConfig(t *testing.T) {
	p := New(WithStrategy(StrategyStreaming), WithStreamingConfig(StreamingConfig{BufferSize: 1}))
	msg, _, err := p.ParseWithDiagnostics(context.Background(), []byte(oruMulti))
	if err != nil {
		t.Fatalf("ParseWithDiagnostics() error = %v", err)
	}
	if len(msg.Segments("OBX")) != 3 {
		t.Errorf("Segments(OBX) = %d, want 3 even with a single streaming worker", len(msg.Segments("OBX")))
	}
}

func TestParseStreaming_ResultsIndexedByPositionNotOriginalOffset(t *testing.T) {
	delims := hl7.DefaultDelimiters()

	spans := []segmentSpan{
		{index: 7, name: "OBX", data: []byte("OBX|1|NM|WBC||7.5")},
	}
	results, err := parseStreaming(context.Background(), spans, delims, 2)
	if err != nil {
		t.Fatalf("parseStreaming() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("parseStreaming() returned %d results, want 1 (indexed by position, not sp.index=7)", len(results))
	}
	if results[0].seg == nil {
		t.Fatal("parseStreaming() result has a nil segment")
	}
	if results[0].seg.Name() != "OBX" {
		t.Errorf("parseStreaming() segment name = %q, want OBX", results[0].seg.Name())
	}
}
