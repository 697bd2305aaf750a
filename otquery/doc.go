/*
Package otquery binds real font files into the shaping pipeline.

It implements otshape.Face on top of go-text/typesetting: the opentype
loader hands raw table bytes to package ot, and the typesetting font
provides character mapping and glyph metrics.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package otquery

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'textshape.query'
func tracer() tracing.Trace {
	return tracing.Select("textshape.query")
}
