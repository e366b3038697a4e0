package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// looksLikeCode reports whether s has the shape of a BCP 47 tag with a 2 or 3 letter language subtag
func looksLikeCode(s string) bool {
	primary, _, _ := strings.Cut(strings.ReplaceAll(s, "_", "-"), "-")
	if len(primary) < 2 || len(primary) > 3 {
		return false
	}
	for _, r := range primary {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// baseCode maps a language code ("hin", "hi-IN", "ta_IN") onto its shortest ISO 639 form
func baseCode(s string) (string, bool) {
	if !looksLikeCode(s) {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

// DisplayLanguage turns a language name or code into an English display name
// Codes go through the CLDR tables, names are title-cased
func DisplayLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if code, ok := baseCode(low); ok {
		if name := display.English.Languages().Name(language.Make(code)); name != "" {
			return name
		}
	}
	return cases.Title(language.English).String(low)
}
