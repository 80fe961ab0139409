package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for the fixed user-facing lines.
const (
	keyNotFound     = "not_found"
	keyFileNotFound = "file_not_found"
	keyHint         = "hint"
)

var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.Spanish, keyNotFound, "No se encontró ningún código QR en las estrategias probadas.")
	set(language.Spanish, keyFileNotFound, "No se encontró ningún código QR, intenta recortar la imagen o usar mayor resolución.")
	set(language.Spanish, keyHint, "TIPS: intenta recortar cerca del QR o usar mayor resolución.")

	set(language.English, keyNotFound, "No QR code was found with any of the tried strategies.")
	set(language.English, keyFileNotFound, "No QR code found, try cropping the image or using a higher resolution.")
	set(language.English, keyHint, "TIPS: try cropping close to the QR code or using a higher resolution.")
	return b
}

// MatchLanguage resolves a BCP 47 tag such as "es" or "en-US" to one of the
// supported languages. Unknown or empty names resolve to Spanish.
func MatchLanguage(name string) language.Tag {
	if name == "" {
		return language.Spanish
	}
	tag, err := language.Parse(name)
	if err != nil {
		return language.Spanish
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Spanish
	}
	return supported[idx]
}

// SupportedLanguage reports whether name parses to a language the catalog has.
func SupportedLanguage(name string) bool {
	tag, err := language.Parse(name)
	if err != nil {
		return false
	}
	_, _, conf := matcher.Match(tag)
	return conf != language.No
}

func newPrinter(lang string) *message.Printer {
	return message.NewPrinter(MatchLanguage(lang), message.Catalog(messages))
}
