/*
Package otshape implements the text shaping pipeline.

Shaping turns the Unicode content of a [Buffer] into positioned glyphs for a
font, applying script-aware preprocessing (joining, syllable analysis, mark
reordering), OpenType substitution and positioning (GSUB/GPOS), and legacy
or AAT fallbacks (kern, morx, kerx, trak) where OpenType data is absent.

The package API is centered around [Shape] and [NewPlan]:
  - callers fill a Buffer with code points and segment properties,
  - [Shape] compiles (or fetches from a per-face cache) a shaping plan and
    drives the buffer through the pipeline,
  - the buffer afterwards holds glyph indices and positions, accessible via
    GlyphInfos and GlyphPositions.

Fonts enter the shaper through the [Face] interface; package otquery binds
real font files to it. Script-specific behavior lives in shaping engines,
selected per segment script at plan-compile time.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package otshape

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/textshape/ot"
)

// NOTDEF is the glyph index for OpenType ".notdef".
const NOTDEF = ot.GlyphIndex(0)

// tracer returns a trace sink for the otshape package namespace.
func tracer() tracing.Trace {
	return tracing.Select("textshape.shaper")
}

// errShaper wraps a message as a user-facing shaping error.
func errShaper(x string) error {
	return fmt.Errorf("OpenType text shaping: %s", x)
}

// assert panics when condition is false.
func assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}
