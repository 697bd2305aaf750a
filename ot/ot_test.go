package ot

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestTagRoundtrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "textshape.ot")
	defer teardown()
	tag := T("GSUB")
	if tag.String() != "GSUB" {
		t.Errorf("tag string = %q, want GSUB", tag.String())
	}
	if MakeTag('k', 'e', 'r', 'n') != T("kern") {
		t.Error("MakeTag and T disagree")
	}
}

func TestTagPadding(t *testing.T) {
	if T("yi") != T("yi  ") {
		t.Error("short tags must be space padded")
	}
}
