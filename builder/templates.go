package builder

import (
	"fmt"

	"github.com/Raster-Lab/hl7kit/hl7"
	"github.com/Raster-Lab/hl7kit/marshal"
)

// Header carries the MSH fields common to every template constructor in
// this file. Zero-value fields are left to messageBuilder's own Build-time
// defaults (timestamp-derived control ID and date/time, version 2.5.1).
type Header struct {
	SendingApplication   string
	SendingFacility      string
	ReceivingApplication string
	ReceivingFacility    string
	ControlID            string
	DateTime             string
	Version              string
	Delimiters           *hl7.Delimiters
}

func (h Header) apply(b hl7.MessageBuilder, msgType, triggerEvent string) hl7.MessageBuilder {
	b = b.SetType(msgType, triggerEvent).
		SetSendingApplication(h.SendingApplication).
		SetSendingFacility(h.SendingFacility).
		SetReceivingApplication(h.ReceivingApplication).
		SetReceivingFacility(h.ReceivingFacility)
	if h.ControlID != "" {
		b = b.SetControlID(h.ControlID)
	}
	if h.DateTime != "" {
		b = b.SetDateTime(h.DateTime)
	}
	if h.Version != "" {
		b = b.SetVersion(h.Version)
	}
	if h.Delimiters != nil {
		b = b.SetDelimiters(h.Delimiters)
	}
	return b
}

// segmentFromStruct marshals a single tagged segment struct (e.g.
// *segments.PID) into its hl7.Segment, reusing the reflection-based
// Marshaler rather than hand-assembling fields.
func segmentFromStruct(name string, v interface{}) (hl7.Segment, error) {
	msg, err := marshal.NewMarshaler().Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("builder: marshaling %s: %w", name, err)
	}
	seg, ok := msg.Segment(name)
	if !ok {
		return nil, fmt.Errorf("builder: marshaling %s: struct produced no %s segment (check hl7 tags)", name, name)
	}
	return seg, nil
}

// ADTA01 builds an ADT^A01 (admit patient) message from a header and the
// PID/PV1 segment data, plus any additional pre-built hl7.Segment values
// (NK1, AL1, and so on) appended after PV1 in call order.
func ADTA01(header Header, pid interface{}, pv1 interface{}, extra ...interface{}) (hl7.Message, error) {
	return buildSequence(header, "ADT", "A01", []namedSegment{
		{"PID", pid},
		{"PV1", pv1},
	}, extra)
}

// ADTA08 builds an ADT^A08 (update patient information) message. Structure
// mirrors ADTA01; A08 differs only in MSH-9's trigger event.
func ADTA08(header Header, pid interface{}, pv1 interface{}, extra ...interface{}) (hl7.Message, error) {
	return buildSequence(header, "ADT", "A08", []namedSegment{
		{"PID", pid},
		{"PV1", pv1},
	}, extra)
}

// ORUR01 builds an ORU^R01 (observation result) message from a header, the
// patient, the observation request, and one or more observation results.
func ORUR01(header Header, pid interface{}, obr interface{}, obx []interface{}) (hl7.Message, error) {
	segs := []namedSegment{
		{"PID", pid},
		{"OBR", obr},
	}
	for _, o := range obx {
		segs = append(segs, namedSegment{"OBX", o})
	}
	return buildSequence(header, "ORU", "R01", segs, nil)
}

// ORMO01 builds an ORM^O01 (order message) from a header, the patient, the
// common order, and the associated observation request, plus any
// additional pre-built hl7.Segment values appended after OBR.
func ORMO01(header Header, pid interface{}, orc interface{}, obr interface{}, extra ...interface{}) (hl7.Message, error) {
	return buildSequence(header, "ORM", "O01", []namedSegment{
		{"PID", pid},
		{"ORC", orc},
		{"OBR", obr},
	}, extra)
}

type namedSegment struct {
	name  string
	value interface{}
}

func buildSequence(header Header, msgType, trigger string, segs []namedSegment, extra []interface{}) (hl7.Message, error) {
	b := header.apply(New(), msgType, trigger)

	for _, ns := range segs {
		if ns.value == nil {
			continue
		}
		seg, err := segmentFromStruct(ns.name, ns.value)
		if err != nil {
			return nil, err
		}
		b = b.AddSegment(seg)
	}

	for i, v := range extra {
		if v == nil {
			continue
		}
		seg, ok := v.(hl7.Segment)
		if !ok {
			return nil, fmt.Errorf("builder: extra segment %d is not an hl7.Segment (marshal it first, e.g. with marshal.Marshal)", i)
		}
		b = b.AddSegment(seg)
	}

	return b.Build()
}
