package otshape

import (
	"testing"

	tslang "github.com/go-text/typesetting/language"
	"github.com/npillmayer/textshape/ot"
)

func TestScriptTags(t *testing.T) {
	cases := []struct {
		script tslang.Script
		want   []ot.Tag
	}{
		{tslang.Latin, []ot.Tag{ot.T("latn")}},
		{tslang.Arabic, []ot.Tag{ot.T("arab")}},
		{tslang.Devanagari, []ot.Tag{ot.T("dev3"), ot.T("dev2"), ot.T("deva")}},
		{tslang.Myanmar, []ot.Tag{ot.T("mym2"), ot.T("mymr")}},
		{tslang.Hiragana, []ot.Tag{ot.T("kana")}},
		{tslang.Lao, []ot.Tag{ot.T("lao ")}},
	}
	for _, c := range cases {
		got := allTagsFromScript(c.script)
		if len(got) != len(c.want) {
			t.Errorf("script %v: got %v tags, want %v", c.script, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("script %v tag %d: got %s, want %s", c.script, i, got[i], c.want[i])
			}
		}
	}
}

func TestLanguageTags(t *testing.T) {
	if tags := tagsFromLanguage("en-US"); len(tags) != 1 || tags[0] != ot.T("ENG ") {
		t.Errorf("en-US: got %v", tags)
	}
	if tags := tagsFromLanguage("DE"); len(tags) != 1 || tags[0] != ot.T("DEU ") {
		t.Errorf("DE: got %v", tags)
	}
	if tags := tagsFromLanguage(""); tags != nil {
		t.Errorf("empty language: got %v", tags)
	}
}

func TestSegmentPropertiesEqual(t *testing.T) {
	a := SegmentProperties{Direction: LeftToRight, Script: tslang.Latin, Language: "en-us"}
	b := SegmentProperties{Direction: LeftToRight, Script: tslang.Latin, Language: "EN-US"}
	if !a.Equal(b) {
		t.Error("languages must compare case-insensitively")
	}
	b.Direction = RightToLeft
	if a.Equal(b) {
		t.Error("direction must participate in equality")
	}
}
