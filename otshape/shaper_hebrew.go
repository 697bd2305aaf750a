package otshape

// The Hebrew shaping engine: standard pipeline plus a composition hook
// producing Hebrew presentation forms for fonts that carry them but lack
// the corresponding mark-positioning rules.

type shaperHebrew struct {
	complexShaperNil
}

var _ ShapingEngine = shaperHebrew{}

func (shaperHebrew) Name() string { return "hebrew" }

func (shaperHebrew) MarksBehavior() (ZeroWidthMarksMode, bool) {
	return ZeroWidthMarksByGDEFLate, true
}

func (shaperHebrew) NormalizationPreference() NormalizationMode { return nmAuto }

// presentation forms with dagesh, FB30 onwards; zero marks a gap in the
// Alphabetic Presentation Forms block.
var hebrewDageshForms = [27]rune{
	0xFB30, // ALEF
	0xFB31, // BET
	0xFB32, // GIMEL
	0xFB33, // DALET
	0xFB34, // HE
	0xFB35, // VAV
	0xFB36, // ZAYIN
	0x0000, // HET
	0xFB38, // TET
	0xFB39, // YOD
	0xFB3A, // FINAL KAF
	0xFB3B, // KAF
	0xFB3C, // LAMED
	0x0000, // FINAL MEM
	0xFB3E, // MEM
	0x0000, // FINAL NUN
	0xFB40, // NUN
	0xFB41, // SAMEKH
	0x0000, // AYIN
	0xFB43, // FINAL PE
	0xFB44, // PE
	0x0000, // FINAL TSADI
	0xFB46, // TSADI
	0xFB47, // QOF
	0xFB48, // RESH
	0xFB49, // SHIN
	0xFB4A, // TAV
}

// Compose implements Hebrew-specific composition beyond canonical pairs:
// dagesh forms, shin/sin dots, and a few vowel carriers. Canonical
// composition is tried first.
func (shaperHebrew) Compose(c *normalizeContext, a, b rune) (rune, bool) {
	if ab, ok := c.composeUnicode(a, b); ok {
		return ab, true
	}
	// Any better?
	found := rune(0)
	switch b {
	case 0x05B4: // HIRIQ
		if a == 0x05D9 { // YOD
			found = 0xFB1D
		}
	case 0x05B7: // PATAH
		switch a {
		case 0x05F2: // YIDDISH YOD YOD
			found = 0xFB1F
		case 0x05D0: // ALEF
			found = 0xFB2E
		}
	case 0x05B8: // QAMATS
		if a == 0x05D0 {
			found = 0xFB2F
		}
	case 0x05B9: // HOLAM
		if a == 0x05D5 { // VAV
			found = 0xFB4B
		}
	case 0x05BC: // DAGESH
		if a >= 0x05D0 && a <= 0x05EA {
			found = hebrewDageshForms[a-0x05D0]
		} else if a == 0xFB2A { // SHIN WITH SHIN DOT
			found = 0xFB2C
		} else if a == 0xFB2B { // SHIN WITH SIN DOT
			found = 0xFB2D
		}
	case 0x05BF: // RAFE
		switch a {
		case 0x05D1: // BET
			found = 0xFB4C
		case 0x05DB: // KAF
			found = 0xFB4D
		case 0x05E4: // PE
			found = 0xFB4E
		}
	case 0x05C1: // SHIN DOT
		if a == 0x05E9 { // SHIN
			found = 0xFB2A
		} else if a == 0xFB49 { // SHIN WITH DAGESH
			found = 0xFB2C
		}
	case 0x05C2: // SIN DOT
		if a == 0x05E9 {
			found = 0xFB2B
		} else if a == 0xFB49 {
			found = 0xFB2D
		}
	}
	if found == 0 {
		return 0, false
	}
	return found, true
}
