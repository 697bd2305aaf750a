package otshape

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// The Unicode adapter: character properties as the shaping pipeline needs
// them. General categories follow the usual HarfBuzz-compatible numbering,
// combining classes are the *modified* classes used for mark reordering,
// and canonical composition/decomposition is delegated to a normalization
// backend (x/text).

// generalCategory is the Unicode General_Category of a code point.
type generalCategory uint8

const (
	control generalCategory = iota // Cc
	format                         // Cf
	unassigned                     // Cn
	privateUse                     // Co
	surrogate                      // Cs
	lowercaseLetter                // Ll
	modifierLetter                 // Lm
	otherLetter                    // Lo
	titlecaseLetter                // Lt
	uppercaseLetter                // Lu
	spacingMark                    // Mc
	enclosingMark                  // Me
	nonSpacingMark                 // Mn
	decimalNumber                  // Nd
	letterNumber                   // Nl
	otherNumber                    // No
	connectPunctuation             // Pc
	dashPunctuation                // Pd
	closePunctuation               // Pe
	finalPunctuation               // Pf
	initialPunctuation             // Pi
	otherPunctuation               // Po
	openPunctuation                // Ps
	currencySymbol                 // Sc
	modifierSymbol                 // Sk
	mathSymbol                     // Sm
	otherSymbol                    // So
	lineSeparator                  // Zl
	paragraphSeparator             // Zp
	spaceSeparator                 // Zs
)

var gcRangeTables = []struct {
	table *unicode.RangeTable
	cat   generalCategory
}{
	{unicode.Lu, uppercaseLetter},
	{unicode.Ll, lowercaseLetter},
	{unicode.Lt, titlecaseLetter},
	{unicode.Lm, modifierLetter},
	{unicode.Lo, otherLetter},
	{unicode.Mn, nonSpacingMark},
	{unicode.Mc, spacingMark},
	{unicode.Me, enclosingMark},
	{unicode.Nd, decimalNumber},
	{unicode.Nl, letterNumber},
	{unicode.No, otherNumber},
	{unicode.Pc, connectPunctuation},
	{unicode.Pd, dashPunctuation},
	{unicode.Ps, openPunctuation},
	{unicode.Pe, closePunctuation},
	{unicode.Pi, initialPunctuation},
	{unicode.Pf, finalPunctuation},
	{unicode.Po, otherPunctuation},
	{unicode.Sm, mathSymbol},
	{unicode.Sc, currencySymbol},
	{unicode.Sk, modifierSymbol},
	{unicode.So, otherSymbol},
	{unicode.Zs, spaceSeparator},
	{unicode.Zl, lineSeparator},
	{unicode.Zp, paragraphSeparator},
	{unicode.Cc, control},
	{unicode.Cf, format},
	{unicode.Cs, surrogate},
	{unicode.Co, privateUse},
}

// uniGeneralCategory returns the general category of a code point.
func uniGeneralCategory(r rune) generalCategory {
	// Fast path for the ASCII range, which dominates real input.
	if r < 0x80 {
		switch {
		case r >= 'a' && r <= 'z':
			return lowercaseLetter
		case r >= 'A' && r <= 'Z':
			return uppercaseLetter
		case r >= '0' && r <= '9':
			return decimalNumber
		case r == ' ':
			return spaceSeparator
		}
	}
	for _, entry := range gcRangeTables {
		if unicode.Is(entry.table, r) {
			return entry.cat
		}
	}
	return unassigned
}

func (gc generalCategory) isMark() bool {
	return gc == nonSpacingMark || gc == spacingMark || gc == enclosingMark
}

func (gc generalCategory) isLetter() bool {
	switch gc {
	case lowercaseLetter, modifierLetter, otherLetter, titlecaseLetter, uppercaseLetter:
		return true
	}
	return false
}

// --- Combining classes -----------------------------------------------------

// Combining classes of interest to the shapers.
const (
	ccNotReordered uint8 = 0
	ccOverlay      uint8 = 1
	ccBelow        uint8 = 220
	ccAbove        uint8 = 230
)

// modifiedCombiningClass maps fixed-position canonical classes to the
// modified classes used for reordering.
var modifiedCombiningClass = map[uint8]uint8{
	// Hebrew
	10: 22, // sheva
	11: 15, // hataf segol
	12: 16, // hataf patah
	13: 17, // hataf qamats
	14: 18, // hiriq
	15: 19, // tsere
	16: 20, // segol
	17: 21, // patah
	18: 14, // qamats
	19: 24, // holam
	20: 23, // qubuts
	21: 12, // dagesh
	22: 25, // meteg
	23: 13, // rafe
	24: 10, // shin dot
	25: 11, // sin dot
	// Arabic
	27: 28, // fathatan
	28: 29, // dammatan
	29: 30, // kasratan
	30: 31, // fatha
	31: 32, // damma
	32: 33, // kasra
	33: 27, // shadda
	34: 26, // sukun
	35: 35, // superscript alef
	// Syriac
	36: 36,
	// Telugu
	84: 88, // length mark
	91: 89, // ai length mark
	// Thai
	103: 3,   // sara u / sara uu
	107: 107, // mai *
	// Lao
	118: 118,
	122: 122,
	// Tibetan
	129: 129,
	130: 130,
	132: 132,
}

// uniCombiningClass returns the canonical combining class of a code point,
// via the normalization backend.
func uniCombiningClass(r rune) uint8 {
	return defaultNormBackend.combiningClass(r)
}

// uniModifiedCombiningClass returns the combining class used for mark
// reordering.
func uniModifiedCombiningClass(r rune) uint8 {
	ccc := uniCombiningClass(r)
	if m, ok := modifiedCombiningClass[ccc]; ok {
		return m
	}
	return ccc
}

// --- Normalization backend -------------------------------------------------

// normalizeBackend provides canonical Unicode normalization primitives used
// by the normalizer.
type normalizeBackend interface {
	combiningClass(r rune) uint8
	decompose(ab rune) (a, b rune, ok bool)
	compose(a, b rune) (ab rune, ok bool)
}

var defaultNormBackend normalizeBackend = normBackendXText{}

// normBackendXText implements normalization through x/text.
type normBackendXText struct{}

func (normBackendXText) combiningClass(u rune) uint8 {
	return norm.NFC.PropertiesString(string(u)).CCC()
}

func (normBackendXText) decompose(ab rune) (a, b rune, ok bool) {
	dec := norm.NFD.PropertiesString(string(ab)).Decomposition()
	if len(dec) == 0 {
		return ab, 0, false
	}
	first, n := utf8.DecodeRune(dec)
	if first == utf8.RuneError && n == 1 {
		return ab, 0, false
	}
	if n == len(dec) {
		return first, 0, true
	}
	second, m := utf8.DecodeRune(dec[n:])
	if second == utf8.RuneError && m == 1 {
		return ab, 0, false
	}
	if n+m != len(dec) {
		// Keep the normalization stage conservative: do not emit multi-rune
		// decompositions in this code path.
		return ab, 0, false
	}
	return first, second, true
}

func (normBackendXText) compose(a, b rune) (rune, bool) {
	composed := norm.NFC.String(string([]rune{a, b}))
	first, n := utf8.DecodeRuneInString(composed)
	if first == utf8.RuneError && n == 1 {
		return 0, false
	}
	if n != len(composed) {
		return 0, false
	}
	return first, true
}

// --- Default ignorables ----------------------------------------------------

// isDefaultIgnorable returns true for code points with the
// Default_Ignorable_Code_Point property that shaping has to hide or remove.
func isDefaultIgnorable(r rune) bool {
	switch r >> 8 {
	case 0x00:
		return r == 0x00AD // SOFT HYPHEN
	case 0x03:
		return r == 0x034F // CGJ
	case 0x06:
		return r == 0x061C // ARABIC LETTER MARK
	case 0x17:
		return 0x17B4 <= r && r <= 0x17B5
	case 0x18:
		return 0x180B <= r && r <= 0x180F
	case 0x20:
		return (0x200B <= r && r <= 0x200F) || (0x202A <= r && r <= 0x202E) ||
			(0x2060 <= r && r <= 0x206F)
	case 0x31:
		return r == 0x3164 // HANGUL FILLER
	case 0xFE:
		return (0xFE00 <= r && r <= 0xFE0F) || r == 0xFEFF
	case 0xFF:
		return r == 0xFFA0 || (0xFFF0 <= r && r <= 0xFFF8)
	default:
		return (0x1BCA0 <= r && r <= 0x1BCA3) || (0x1D173 <= r && r <= 0x1D17A) ||
			(0xE0000 <= r && r <= 0xE0FFF)
	}
}

// isHiddenIgnorable returns true for default ignorables that must stay
// visible to GSUB context matching (CGJ, Mongolian FVS, tag characters).
func isHiddenIgnorable(r rune) bool {
	return r == 0x034F || (0x180B <= r && r <= 0x180D) || r == 0x180F ||
		(0xE0020 <= r && r <= 0xE007F)
}

// isVariationSelector covers the VS and Mongolian FVS ranges.
func isVariationSelector(r rune) bool {
	return (0xFE00 <= r && r <= 0xFE0F) || (0xE0100 <= r && r <= 0xE01EF) ||
		(0x180B <= r && r <= 0x180D) || r == 0x180F
}

// isZWNJ / isZWJ identify the joiner controls.
func isZWNJ(r rune) bool { return r == 0x200C }
func isZWJ(r rune) bool  { return r == 0x200D }

// --- Space fallback --------------------------------------------------------

// spaceFallback classifies Unicode space characters for synthetic widths
// when the font has no glyphs for them.
type spaceFallback uint8

const (
	spaceNot   spaceFallback = iota
	space                    // regular word space width
	spaceEm                  // 1 em
	spaceEm2                 // 1/2 em
	spaceEm3                 // 1/3 em
	spaceEm4                 // 1/4 em
	spaceEm6                 // 1/6 em
	spaceEm16                // 1/16 em
	space4Em18               // 4/18 em
	spaceNarrow
	spaceFigure // width of a digit
	spacePunctuation
)

func spaceFallbackType(r rune) spaceFallback {
	switch r {
	case 0x00A0: // NO-BREAK SPACE
		return space
	case 0x2000, 0x2002: // EN QUAD, EN SPACE
		return spaceEm2
	case 0x2001, 0x2003: // EM QUAD, EM SPACE
		return spaceEm
	case 0x2004: // THREE-PER-EM
		return spaceEm3
	case 0x2005: // FOUR-PER-EM
		return spaceEm4
	case 0x2006: // SIX-PER-EM
		return spaceEm6
	case 0x2007: // FIGURE SPACE
		return spaceFigure
	case 0x2008: // PUNCTUATION SPACE
		return spacePunctuation
	case 0x2009: // THIN SPACE
		return spaceEm6 // actually 1/5 em; HarfBuzz uses the same bucket
	case 0x200A: // HAIR SPACE
		return spaceEm16
	case 0x202F: // NARROW NO-BREAK SPACE
		return spaceNarrow
	case 0x205F: // MEDIUM MATHEMATICAL SPACE
		return space4Em18
	case 0x3000: // IDEOGRAPHIC SPACE
		return spaceEm
	}
	return spaceNot
}

// --- Mirroring -------------------------------------------------------------

// mirrorPairs is the bidi-mirroring table restricted to the pairs commonly
// carried by fonts. Anything absent mirrors to itself.
var mirrorPairs = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
	'<': '>', '>': '<',
	0x00AB: 0x00BB, 0x00BB: 0x00AB, // guillemets
	0x2018: 0x2019, 0x2019: 0x2018,
	0x201C: 0x201D, 0x201D: 0x201C,
	0x2039: 0x203A, 0x203A: 0x2039,
	0x2045: 0x2046, 0x2046: 0x2045,
	0x207D: 0x207E, 0x207E: 0x207D,
	0x208D: 0x208E, 0x208E: 0x208D,
	0x2208: 0x220B, 0x220B: 0x2208,
	0x2209: 0x220C, 0x220C: 0x2209,
	0x2264: 0x2265, 0x2265: 0x2264,
	0x2266: 0x2267, 0x2267: 0x2266,
	0x2276: 0x2277, 0x2277: 0x2276,
	0x2282: 0x2283, 0x2283: 0x2282,
	0x2286: 0x2287, 0x2287: 0x2286,
	0x2308: 0x2309, 0x2309: 0x2308,
	0x230A: 0x230B, 0x230B: 0x230A,
	0x2329: 0x232A, 0x232A: 0x2329,
	0x27E6: 0x27E7, 0x27E7: 0x27E6,
	0x27E8: 0x27E9, 0x27E9: 0x27E8,
	0x27EA: 0x27EB, 0x27EB: 0x27EA,
	0x2983: 0x2984, 0x2984: 0x2983,
	0x2985: 0x2986, 0x2986: 0x2985,
	0x3008: 0x3009, 0x3009: 0x3008,
	0x300A: 0x300B, 0x300B: 0x300A,
	0x300C: 0x300D, 0x300D: 0x300C,
	0x300E: 0x300F, 0x300F: 0x300E,
	0x3010: 0x3011, 0x3011: 0x3010,
	0x3014: 0x3015, 0x3015: 0x3014,
	0x3016: 0x3017, 0x3017: 0x3016,
	0x3018: 0x3019, 0x3019: 0x3018,
	0x301A: 0x301B, 0x301B: 0x301A,
	0xFE59: 0xFE5A, 0xFE5A: 0xFE59,
	0xFE5B: 0xFE5C, 0xFE5C: 0xFE5B,
	0xFF08: 0xFF09, 0xFF09: 0xFF08,
	0xFF1C: 0xFF1E, 0xFF1E: 0xFF1C,
	0xFF3B: 0xFF3D, 0xFF3D: 0xFF3B,
	0xFF5B: 0xFF5D, 0xFF5D: 0xFF5B,
	0xFF62: 0xFF63, 0xFF63: 0xFF62,
}

// uniMirror returns the bidi-mirrored counterpart of r, or r itself.
func uniMirror(r rune) rune {
	if m, ok := mirrorPairs[r]; ok {
		return m
	}
	return r
}

// isExtendedPictographic is a pragmatic approximation of the
// Extended_Pictographic property, covering the emoji blocks.
func isExtendedPictographic(r rune) bool {
	return (0x1F000 <= r && r <= 0x1FAFF) || (0x2600 <= r && r <= 0x27BF) ||
		r == 0x2B50 || r == 0x2B55 || (0x1F900 <= r && r <= 0x1F9FF)
}
