package config

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.MaxNodeID != 31 || cfg.MaxPeers != 7 || cfg.MinMinorNr != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DrbdctrlVG != "drbdpool" {
		t.Errorf("DrbdctrlVG = %q, want drbdpool", cfg.DrbdctrlVG)
	}
}

func TestParseOverridesAndComments(t *testing.T) {
	input := `
# this is a comment
max-node-id=15

storage-plugin=ZFS
drbdctrl-vg = customvg
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.MaxNodeID != 15 {
		t.Errorf("MaxNodeID = %d, want 15", cfg.MaxNodeID)
	}
	if cfg.StoragePlugin != "ZFS" {
		t.Errorf("StoragePlugin = %q, want ZFS", cfg.StoragePlugin)
	}
	if cfg.DrbdctrlVG != "customvg" {
		t.Errorf("DrbdctrlVG = %q, want customvg", cfg.DrbdctrlVG)
	}
	// Untouched keys keep their defaults.
	if cfg.MaxPeers != 7 {
		t.Errorf("MaxPeers = %d, want default 7", cfg.MaxPeers)
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	_, err := Parse(strings.NewReader("bogus-key=1\n"))
	if err == nil {
		t.Fatal("expected error for unrecognized key")
	}
}

func TestParseRejectsMalformedLine(t *testing.T) {
	_, err := Parse(strings.NewReader("not-a-keyvalue-line\n"))
	if err == nil {
		t.Fatal("expected error for line missing '='")
	}
}

func TestParseRejectsNonIntegerValue(t *testing.T) {
	_, err := Parse(strings.NewReader("max-node-id=not-a-number\n"))
	if err == nil {
		t.Fatal("expected error for non-integer value")
	}
}
