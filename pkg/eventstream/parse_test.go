package eventstream

import "testing"

func TestParseLine(t *testing.T) {
	l, ok := parseLine("change connection name:.drbdctrl peer-node-id:1 role:Secondary")
	if !ok {
		t.Fatal("parseLine() returned ok=false")
	}
	if l.Type != "change" || l.Source != "connection" {
		t.Fatalf("parsed Type/Source = %q/%q", l.Type, l.Source)
	}
	if l.Attrs["name"] != ".drbdctrl" || l.Attrs["role"] != "Secondary" {
		t.Fatalf("parsed attrs = %+v", l.Attrs)
	}
}

func TestParseLineTooShort(t *testing.T) {
	if _, ok := parseLine("exists"); ok {
		t.Fatal("expected ok=false for a line with no source field")
	}
}

func TestTriggersConnectionSecondary(t *testing.T) {
	l, _ := parseLine("change connection name:.drbdctrl role:Secondary")
	if !l.Triggers(".drbdctrl") {
		t.Error("expected trigger for control-resource connection->Secondary")
	}
}

func TestTriggersPeerDeviceSyncTarget(t *testing.T) {
	l, _ := parseLine("change peer-device name:.drbdctrl replication:SyncTarget")
	if !l.Triggers(".drbdctrl") {
		t.Error("expected trigger for control-resource peer-device->SyncTarget")
	}
}

func TestNoTriggerForOtherResources(t *testing.T) {
	l, _ := parseLine("change connection name:data role:Secondary")
	if l.Triggers(".drbdctrl") {
		t.Error("non-control-resource line must never trigger")
	}
}

func TestNoTriggerForNonChangeType(t *testing.T) {
	l, _ := parseLine("exists connection name:.drbdctrl role:Secondary")
	if l.Triggers(".drbdctrl") {
		t.Error("an 'exists' line (initial dump) must never trigger")
	}
}

func TestNoTriggerForUnrelatedAttrs(t *testing.T) {
	l, _ := parseLine("change connection name:.drbdctrl role:Primary")
	if l.Triggers(".drbdctrl") {
		t.Error("role:Primary must never trigger")
	}
}
