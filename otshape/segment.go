package otshape

import (
	"strings"

	tslang "github.com/go-text/typesetting/language"
)

// Direction is the text direction of a segment.
type Direction uint8

const (
	// DirectionInvalid means direction has not been set and will be
	// guessed from the segment's script before shaping.
	DirectionInvalid Direction = iota
	LeftToRight
	RightToLeft
	TopToBottom
	BottomToTop
)

func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "ltr"
	case RightToLeft:
		return "rtl"
	case TopToBottom:
		return "ttb"
	case BottomToTop:
		return "btt"
	}
	return "invalid"
}

func (d Direction) isHorizontal() bool { return d == LeftToRight || d == RightToLeft }
func (d Direction) isVertical() bool   { return d == TopToBottom || d == BottomToTop }
func (d Direction) isForward() bool    { return d == LeftToRight || d == TopToBottom }
func (d Direction) isBackward() bool   { return d == RightToLeft || d == BottomToTop }

// reverse returns the opposite direction.
func (d Direction) reverse() Direction {
	switch d {
	case LeftToRight:
		return RightToLeft
	case RightToLeft:
		return LeftToRight
	case TopToBottom:
		return BottomToTop
	case BottomToTop:
		return TopToBottom
	}
	return DirectionInvalid
}

// Language is a BCP-47 language string, compared case-insensitively.
type Language string

// normalize lower-cases the language for comparison and tag resolution.
func (l Language) normalize() string {
	return strings.ToLower(strings.TrimSpace(string(l)))
}

// SegmentProperties describe a contiguous run of text with uniform
// direction, script and language.
type SegmentProperties struct {
	Direction Direction
	Script    tslang.Script
	Language  Language
}

// Equal compares two segment property sets; languages compare
// case-insensitively.
func (p SegmentProperties) Equal(other SegmentProperties) bool {
	return p.Direction == other.Direction &&
		p.Script == other.Script &&
		p.Language.normalize() == other.Language.normalize()
}

// scriptHorizontalDirection returns the dominant horizontal direction of a
// script. Scripts written right-to-left return RightToLeft; everything else
// defaults to LeftToRight.
func scriptHorizontalDirection(script tslang.Script) Direction {
	switch script {
	case tslang.Arabic, tslang.Hebrew, tslang.Syriac, tslang.Thaana,
		tslang.Nko, tslang.Samaritan, tslang.Mandaic, tslang.Lydian,
		tslang.Phoenician, tslang.Imperial_Aramaic, tslang.Kharoshthi,
		tslang.Old_South_Arabian, tslang.Old_North_Arabian, tslang.Avestan,
		tslang.Inscriptional_Parthian, tslang.Inscriptional_Pahlavi,
		tslang.Psalter_Pahlavi, tslang.Manichaean, tslang.Mende_Kikakui,
		tslang.Nabataean, tslang.Palmyrene, tslang.Hatran, tslang.Adlam,
		tslang.Hanifi_Rohingya, tslang.Old_Sogdian, tslang.Sogdian,
		tslang.Elymaic, tslang.Yezidi, tslang.Chorasmian:
		return RightToLeft
	}
	return LeftToRight
}
