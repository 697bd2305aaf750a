package otshape

import (
	"strings"

	tslang "github.com/go-text/typesetting/language"
	"github.com/npillmayer/textshape/ot"
	xlanguage "golang.org/x/text/language"
)

// Conversion of Unicode scripts and BCP-47 languages to OpenType script and
// language-system tags.

const (
	scriptCommon    = tslang.Script(0x5A797979) // Zyyy
	scriptInherited = tslang.Script(0x5A696E68) // Zinh
	scriptUnknown   = tslang.Script(0x5A7A7A7A) // Zzzz
)

// lookupScript returns the Unicode script of a code point.
func lookupScript(r rune) tslang.Script {
	return tslang.LookupScript(r)
}

func oldTagFromScript(script tslang.Script) ot.Tag {
	switch script {
	case 0:
		return ot.DFLT
	case tslang.Mathematical_notation:
		return ot.T("math")
	// Katakana and Hiragana both map to 'kana'
	case tslang.Hiragana:
		return ot.T("kana")
	// Spaces at the end are preserved, unlike ISO 15924
	case tslang.Lao:
		return ot.T("lao ")
	case tslang.Yi:
		return ot.T("yi  ")
	case tslang.Nko:
		return ot.T("nko ")
	case tslang.Vai:
		return ot.T("vai ")
	}
	// else, just change first char to lowercase
	return ot.Tag(uint32(script) | 0x20000000)
}

func newTagFromScript(script tslang.Script) ot.Tag {
	switch script {
	case tslang.Bengali:
		return ot.T("bng2")
	case tslang.Devanagari:
		return ot.T("dev2")
	case tslang.Gujarati:
		return ot.T("gjr2")
	case tslang.Gurmukhi:
		return ot.T("gur2")
	case tslang.Kannada:
		return ot.T("knd2")
	case tslang.Malayalam:
		return ot.T("mlm2")
	case tslang.Oriya:
		return ot.T("ory2")
	case tslang.Tamil:
		return ot.T("tml2")
	case tslang.Telugu:
		return ot.T("tel2")
	case tslang.Myanmar:
		return ot.T("mym2")
	}
	return ot.DFLT
}

// allTagsFromScript returns candidate OT script tags for a Unicode script,
// most specific first.
func allTagsFromScript(script tslang.Script) []ot.Tag {
	var tags []ot.Tag
	tag := newTagFromScript(script)
	if tag != ot.DFLT {
		// Myanmar maps to 'mym2', but there is no 'mym3'.
		if tag != ot.T("mym2") {
			tags = append(tags, tag|'3')
		}
		tags = append(tags, tag)
	}
	oldTag := oldTagFromScript(script)
	if oldTag != ot.DFLT {
		tags = append(tags, oldTag)
	}
	return tags
}

// otLanguageTags maps primary language subtags to OT language-system tags
// for the cases where they differ. The long tail of exceptional mappings is
// resolved through the ISO 639-3 uppercase rule below.
var otLanguageTags = map[string]ot.Tag{
	"ar":  ot.T("ARA "),
	"az":  ot.T("AZE "),
	"be":  ot.T("BEL "),
	"bg":  ot.T("BGR "),
	"bn":  ot.T("BEN "),
	"cs":  ot.T("CSY "),
	"da":  ot.T("DAN "),
	"de":  ot.T("DEU "),
	"dv":  ot.T("DIV "),
	"el":  ot.T("ELL "),
	"en":  ot.T("ENG "),
	"es":  ot.T("ESP "),
	"et":  ot.T("ETI "),
	"eu":  ot.T("EUQ "),
	"fa":  ot.T("FAR "),
	"fi":  ot.T("FIN "),
	"fr":  ot.T("FRA "),
	"ga":  ot.T("IRI "),
	"gu":  ot.T("GUJ "),
	"he":  ot.T("IWR "),
	"hi":  ot.T("HIN "),
	"hr":  ot.T("HRV "),
	"hu":  ot.T("HUN "),
	"hy":  ot.T("HYE "),
	"id":  ot.T("IND "),
	"it":  ot.T("ITA "),
	"ja":  ot.T("JAN "),
	"ka":  ot.T("KAT "),
	"km":  ot.T("KHM "),
	"kn":  ot.T("KAN "),
	"ko":  ot.T("KOR "),
	"lo":  ot.T("LAO "),
	"lt":  ot.T("LTH "),
	"lv":  ot.T("LVI "),
	"ml":  ot.T("MAL "),
	"mn":  ot.T("MNG "),
	"mr":  ot.T("MAR "),
	"ms":  ot.T("MLY "),
	"my":  ot.T("BRM "),
	"ne":  ot.T("NEP "),
	"nl":  ot.T("NLD "),
	"no":  ot.T("NOR "),
	"or":  ot.T("ORI "),
	"pa":  ot.T("PAN "),
	"pl":  ot.T("PLK "),
	"pt":  ot.T("PTG "),
	"ro":  ot.T("ROM "),
	"ru":  ot.T("RUS "),
	"si":  ot.T("SNH "),
	"sk":  ot.T("SKY "),
	"sl":  ot.T("SLV "),
	"sq":  ot.T("SQI "),
	"sr":  ot.T("SRB "),
	"sv":  ot.T("SVE "),
	"ta":  ot.T("TAM "),
	"te":  ot.T("TEL "),
	"th":  ot.T("THA "),
	"tr":  ot.T("TRK "),
	"uk":  ot.T("UKR "),
	"ur":  ot.T("URD "),
	"vi":  ot.T("VIT "),
	"zh":  ot.T("ZHS "),
	"zu":  ot.T("ZUL "),
}

func isAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func toUpper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// tagsFromLanguage converts a BCP-47 language to candidate OT language
// tags. Unknown three-letter primaries are assumed to be ISO 639-3 and
// upper-cased.
func tagsFromLanguage(lang Language) []ot.Tag {
	langStr := lang.normalize()
	if langStr == "" {
		return nil
	}
	tag, err := xlanguage.Parse(langStr)
	if err != nil {
		return nil
	}
	base, _ := tag.Base()
	primary := strings.ToLower(base.String())
	if primary == "" {
		return nil
	}
	if t, ok := otLanguageTags[primary]; ok {
		return []ot.Tag{t}
	}
	if len(primary) == 3 && isAlpha(primary[0]) && isAlpha(primary[1]) && isAlpha(primary[2]) {
		return []ot.Tag{ot.MakeTag(toUpper(primary[0]), toUpper(primary[1]), toUpper(primary[2]), ' ')}
	}
	return nil
}
