package builder

import (
	"fmt"

	"github.com/Raster-Lab/hl7kit/hl7"
)

// segmentBuilder is the concrete implementation of hl7.SegmentBuilder.
type segmentBuilder struct {
	name   string
	delims *hl7.Delimiters
	ops    []segmentOp
}

// segmentOp is a deferred mutation applied to the segment during Build, in
// the order the builder methods were called.
type segmentOp struct {
	field int
	comp  int
	sub   int
	value string
	isRep bool
}

// NewSegment creates a SegmentBuilder for a segment named name.
func NewSegment(name string) hl7.SegmentBuilder {
	return &segmentBuilder{name: name}
}

func (b *segmentBuilder) SetName(name string) hl7.SegmentBuilder {
	b.name = name
	return b
}

func (b *segmentBuilder) SetDelimiters(delims *hl7.Delimiters) hl7.SegmentBuilder {
	b.delims = delims
	return b
}

func (b *segmentBuilder) SetField(index int, value string) hl7.SegmentBuilder {
	b.ops = append(b.ops, segmentOp{field: index, value: value})
	return b
}

func (b *segmentBuilder) SetComponent(fieldIndex, componentIndex int, value string) hl7.SegmentBuilder {
	b.ops = append(b.ops, segmentOp{field: fieldIndex, comp: componentIndex, value: value})
	return b
}

func (b *segmentBuilder) SetSubComponent(fieldIndex, componentIndex, subComponentIndex int, value string) hl7.SegmentBuilder {
	b.ops = append(b.ops, segmentOp{field: fieldIndex, comp: componentIndex, sub: subComponentIndex, value: value})
	return b
}

func (b *segmentBuilder) AddRepetition(fieldIndex int, value string) hl7.SegmentBuilder {
	b.ops = append(b.ops, segmentOp{field: fieldIndex, value: value, isRep: true})
	return b
}

// Build constructs and returns the Segment, replaying the queued
// mutations against a fresh hl7.Segment in call order.
func (b *segmentBuilder) Build() (hl7.Segment, error) {
	if b.name == "" {
		return nil, ErrMissingSegmentName
	}

	delims := b.delims
	if delims == nil {
		delims = hl7.DefaultDelimiters()
	}

	seg := hl7.NewSegment(b.name)
	for _, op := range b.ops {
		if op.isRep {
			existing, ok := seg.Field(op.field)
			base := ""
			if ok {
				base = existing.Value()
			}
			joined := op.value
			if base != "" {
				joined = base + string(delims.Repetition) + op.value
			}
			f, err := hl7.ParseField(op.field, []rune(joined), delims)
			if err != nil {
				return nil, fmt.Errorf("builder: adding repetition to field %d: %w", op.field, err)
			}
			if err := seg.SetField(op.field, f); err != nil {
				return nil, fmt.Errorf("builder: adding repetition to field %d: %w", op.field, err)
			}
			continue
		}

		loc := fmt.Sprintf("%d", op.field)
		if op.comp > 0 {
			loc = fmt.Sprintf("%d.%d", op.field, op.comp)
		}
		if op.sub > 0 {
			loc = fmt.Sprintf("%d.%d.%d", op.field, op.comp, op.sub)
		}
		if err := seg.Set(loc, op.value); err != nil {
			return nil, fmt.Errorf("builder: setting %s: %w", loc, err)
		}
	}

	return seg, nil
}

var _ hl7.SegmentBuilder = (*segmentBuilder)(nil)
