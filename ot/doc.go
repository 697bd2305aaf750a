/*
Package ot provides a shaping-oriented model of OpenType layout tables.

The package decodes those tables of a font that drive text shaping — GDEF,
GSUB and GPOS, the legacy 'kern' table, and the AAT tables morx, kerx and
trak — from their raw binary form into compact, read-only Go structures.
It deliberately does not read font files: clients hand in the bytes of a
single table (usually obtained through an otquery face) and receive a parsed
view, or an empty view if the bytes are malformed. Package ot never panics
on font data; defects are traced and result in absent structures, which the
shaper treats as "table not present".

Interpretation of the tables — applying lookups to glyph runs — is the
business of the sister package otshape.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package ot

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'textshape.ot'
func tracer() tracing.Trace {
	return tracing.Select("textshape.ot")
}
