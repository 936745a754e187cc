package hl7

import "testing"

func TestSubComponentClone_Isolation(t *testing.T) {
	orig := &subComponent{value: []rune("original")}
	clone := orig.Clone()

	if err := clone.Set("changed"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if orig.Value() != "original" {
		t.Errorf("original mutated after cloning: %q", orig.Value())
	}
	if clone.Value() != "changed" {
		t.Errorf("clone.Value() = %q, want changed", clone.Value())
	}
}

func TestComponentClone_Isolation(t *testing.T) {
	orig := &component{
		value: []rune("comp"),
		subComponents: []SubComponent{
			&subComponent{value: []rune("sub1")},
		},
	}
	clone := orig.Clone()

	if err := clone.Set("comp-changed"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	sc, ok := clone.SubComponent(1)
	if !ok {
		t.Fatal("clone missing subcomponent 1")
	}
	if err := sc.Set("sub-changed"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if orig.Value() != "comp" {
		t.Errorf("original component mutated: %q", orig.Value())
	}
	origSC, ok := orig.SubComponent(1)
	if !ok {
		t.Fatal("original missing subcomponent 1")
	}
	if origSC.Value() != "sub1" {
		t.Errorf("original subcomponent mutated: %q", origSC.Value())
	}
}

func TestSegmentClone_Isolation(t *testing.T) {
	orig := NewSegment("PID")
	orig.AddField(NewField(1, "123456"))

	clone := orig.Clone()
	clone.Set(".1", "999999")

	origVal, _ := orig.Get(".1")
	cloneVal, _ := clone.Get(".1")

	if origVal != "123456" {
		t.Errorf("original segment mutated after clone: %q", origVal)
	}
	if cloneVal != "999999" {
		t.Errorf("clone.Get() = %q, want 999999", cloneVal)
	}
	if clone.Name() != orig.Name() {
		t.Errorf("Clone() name = %q, want %q", clone.Name(), orig.Name())
	}
}

func TestMessageClone_CopyOnWrite(t *testing.T) {
	pid := NewSegment("PID")
	pid.AddField(NewField(1, "original"))

	msg := NewMessage([]Segment{pid}, DefaultDelimiters())
	clone := msg.Clone()

	// Before either side mutates, both see the same field value.
	origBefore, _ := msg.Get("PID.1")
	cloneBefore, _ := clone.Get("PID.1")
	if origBefore != cloneBefore {
		t.Fatalf("unforked clone disagrees with original: %q vs %q", origBefore, cloneBefore)
	}

	if err := clone.Set("PID.1", "mutated"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	origAfter, _ := msg.Get("PID.1")
	cloneAfter, _ := clone.Get("PID.1")

	if origAfter != "original" {
		t.Errorf("original message mutated after clone diverged: %q", origAfter)
	}
	if cloneAfter != "mutated" {
		t.Errorf("clone.Get() = %q, want mutated", cloneAfter)
	}
}

func TestMessageClone_MultipleClonesIsolated(t *testing.T) {
	pid := NewSegment("PID")
	pid.AddField(NewField(1, "shared"))
	msg := NewMessage([]Segment{pid}, DefaultDelimiters())

	cloneA := msg.Clone()
	cloneB := msg.Clone()

	cloneA.Set("PID.1", "from-a")
	cloneB.Set("PID.1", "from-b")

	valA, _ := cloneA.Get("PID.1")
	valB, _ := cloneB.Get("PID.1")
	valOrig, _ := msg.Get("PID.1")

	if valA != "from-a" {
		t.Errorf("cloneA.Get() = %q, want from-a", valA)
	}
	if valB != "from-b" {
		t.Errorf("cloneB.Get() = %q, want from-b", valB)
	}
	if valOrig != "shared" {
		t.Errorf("original.Get() = %q, want shared", valOrig)
	}
}
