/*
Package textshape shapes Unicode text into positioned glyph runs.

Shaping is the process of translating a sequence of code points, together
with an OpenType (or AAT) font, into a sequence of glyphs with positions,
honoring the font's substitution and positioning rules (GSUB/GPOS) as well
as legacy and Apple layout tables (kern/morx/kerx/trak).

The root package contains convenience types for loading fonts from disk or
memory. The shaping pipeline itself lives in package otshape, the low-level
layout-table model in package ot, and the adapter binding real fonts into
the shaper in package otquery.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package textshape

import (
	"os"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/font/sfnt"
)

// tracer writes to trace with key 'textshape'
func tracer() tracing.Trace {
	return tracing.Select("textshape")
}

// ScalableFont is an internal representation of an outline-font of type
// TTF or OTF.
type ScalableFont struct {
	Fontname string
	Filepath string     // file path
	Binary   []byte     // raw data
	SFNT     *sfnt.Font // the font's container
}

// LoadOpenTypeFont loads an OpenType font (TTF or OTF) from a file.
func LoadOpenTypeFont(fontfile string) (*ScalableFont, error) {
	bytez, err := os.ReadFile(fontfile)
	if err != nil {
		return nil, err
	}
	f, err := ParseOpenTypeFont(bytez)
	if err != nil {
		return nil, err
	}
	f.Filepath = fontfile
	return f, nil
}

// ParseOpenTypeFont loads an OpenType font (TTF or OTF) from memory.
func ParseOpenTypeFont(fbytes []byte) (f *ScalableFont, err error) {
	f = &ScalableFont{Binary: fbytes}
	f.SFNT, err = sfnt.Parse(f.Binary)
	if err != nil {
		return nil, err
	}
	if f.Fontname, err = f.SFNT.Name(nil, sfnt.NameIDFull); err == nil {
		tracer().Debugf("loaded and parsed SFNT %s", f.Fontname)
	}
	return f, nil
}
