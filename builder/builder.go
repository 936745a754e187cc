// Package builder provides a fluent interface for constructing HL7 v2.x
// messages and segments without manually managing delimiters, field
// indices, or segment ordering.
package builder

import (
	"errors"
	"fmt"
	"time"

	"github.com/Raster-Lab/hl7kit/hl7"
)

// Errors returned while building a message or segment.
var (
	// ErrMissingMessageType indicates Build was called without SetType.
	ErrMissingMessageType = errors.New("builder: message type not set")
	// ErrMissingSegmentName indicates Build was called without SetName.
	ErrMissingSegmentName = errors.New("builder: segment name not set")
)

// messageBuilder is the concrete implementation of hl7.MessageBuilder.
type messageBuilder struct {
	delims            *hl7.Delimiters
	version           string
	msgType           string
	triggerEvent      string
	controlID         string
	sendingApp        string
	sendingFacility   string
	receivingApp      string
	receivingFacility string
	dateTime          string
	segments          []hl7.Segment
	sets              []pendingSet
	timeFunc          func() time.Time
}

type pendingSet struct {
	location string
	value    string
}

// New creates a MessageBuilder. timeFunc defaults to time.Now and is used
// to stamp MSH-7 when SetDateTime is never called explicitly, and to form
// the default control ID ("MSG" plus its UnixNano) when none is set.
func New() hl7.MessageBuilder {
	return &messageBuilder{timeFunc: time.Now}
}

// NewWithTimeFunc creates a MessageBuilder with a custom clock, primarily
// for deterministic tests.
func NewWithTimeFunc(fn func() time.Time) hl7.MessageBuilder {
	return &messageBuilder{timeFunc: fn}
}

func (b *messageBuilder) SetDelimiters(delims *hl7.Delimiters) hl7.MessageBuilder {
	b.delims = delims
	return b
}

func (b *messageBuilder) SetVersion(version string) hl7.MessageBuilder {
	b.version = version
	return b
}

func (b *messageBuilder) SetType(messageType, triggerEvent string) hl7.MessageBuilder {
	b.msgType = messageType
	b.triggerEvent = triggerEvent
	return b
}

func (b *messageBuilder) SetControlID(controlID string) hl7.MessageBuilder {
	b.controlID = controlID
	return b
}

func (b *messageBuilder) SetSendingApplication(app string) hl7.MessageBuilder {
	b.sendingApp = app
	return b
}

func (b *messageBuilder) SetSendingFacility(facility string) hl7.MessageBuilder {
	b.sendingFacility = facility
	return b
}

func (b *messageBuilder) SetReceivingApplication(app string) hl7.MessageBuilder {
	b.receivingApp = app
	return b
}

func (b *messageBuilder) SetReceivingFacility(facility string) hl7.MessageBuilder {
	b.receivingFacility = facility
	return b
}

func (b *messageBuilder) SetDateTime(datetime string) hl7.MessageBuilder {
	b.dateTime = datetime
	return b
}

func (b *messageBuilder) AddSegment(seg hl7.Segment) hl7.MessageBuilder {
	if seg != nil {
		b.segments = append(b.segments, seg)
	}
	return b
}

// Set queues a value to be applied via Message.Set once the message (and
// therefore its MSH) has been constructed. Locations targeting MSH fields
// that SetType/SetControlID/etc. already populate simply overwrite them.
func (b *messageBuilder) Set(location string, value string) hl7.MessageBuilder {
	b.sets = append(b.sets, pendingSet{location: location, value: value})
	return b
}

// Build constructs and returns the Message, synthesizing an MSH segment
// from the fields configured via the Set* methods and prepending it ahead
// of any segments added with AddSegment.
func (b *messageBuilder) Build() (hl7.Message, error) {
	if b.msgType == "" {
		return nil, ErrMissingMessageType
	}

	delims := b.delims
	if delims == nil {
		delims = hl7.DefaultDelimiters()
	}

	controlID := b.controlID
	if controlID == "" {
		controlID = fmt.Sprintf("MSG%d", b.clock().UnixNano())
	}

	dateTime := b.dateTime
	if dateTime == "" {
		dateTime = b.clock().Format("20060102150405")
	}

	version := b.version
	if version == "" {
		version = "2.5.1"
	}

	msgTypeField := b.msgType
	if b.triggerEvent != "" {
		msgTypeField = b.msgType + string(delims.Component) + b.triggerEvent
	}

	msh := hl7.NewSegment("MSH")
	_ = msh.AddField(hl7.NewField(1, string(delims.Field)))
	_ = msh.AddField(hl7.NewField(2, delims.EncodingCharacters()))
	_ = msh.AddField(hl7.NewField(3, b.sendingApp))
	_ = msh.AddField(hl7.NewField(4, b.sendingFacility))
	_ = msh.AddField(hl7.NewField(5, b.receivingApp))
	_ = msh.AddField(hl7.NewField(6, b.receivingFacility))
	_ = msh.AddField(hl7.NewField(7, dateTime))
	_ = msh.AddField(hl7.NewField(8, ""))
	_ = msh.AddField(hl7.NewField(9, msgTypeField))
	_ = msh.AddField(hl7.NewField(10, controlID))
	_ = msh.AddField(hl7.NewField(11, "P"))
	_ = msh.AddField(hl7.NewField(12, version))

	msg := hl7.NewMessageWithDelimiters(delims)
	if err := msg.AddSegment(msh); err != nil {
		return nil, fmt.Errorf("builder: adding MSH: %w", err)
	}
	for _, seg := range b.segments {
		if err := msg.AddSegment(seg); err != nil {
			return nil, fmt.Errorf("builder: adding segment %s: %w", seg.Name(), err)
		}
	}
	for _, s := range b.sets {
		if err := msg.Set(s.location, s.value); err != nil {
			return nil, fmt.Errorf("builder: setting %s: %w", s.location, err)
		}
	}

	return msg, nil
}

func (b *messageBuilder) clock() time.Time {
	if b.timeFunc != nil {
		return b.timeFunc()
	}
	return time.Now()
}

var _ hl7.MessageBuilder = (*messageBuilder)(nil)
