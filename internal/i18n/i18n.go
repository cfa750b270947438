// Package i18n maps the symbolic text keys shown on screen ("smile", ...)
// to localized strings.
package i18n

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Keys used by the booth.
const (
	KeySmile      = "smile"
	KeyIntro      = "intro"
	KeyProcessing = "processing"
	KeyUploaded   = "uploaded"
)

var builtin = map[string]map[string]string{
	"en": {
		KeySmile:      "Smile!",
		KeyIntro:      "Press the button",
		KeyProcessing: "Processing...",
		KeyUploaded:   "Your picture is online",
	},
	"fr": {
		KeySmile:      "Souriez !",
		KeyIntro:      "Appuyez sur le bouton",
		KeyProcessing: "Traitement...",
		KeyUploaded:   "Votre photo est en ligne",
	},
	"de": {
		KeySmile:      "Lächeln!",
		KeyIntro:      "Drücken Sie den Knopf",
		KeyProcessing: "Verarbeitung...",
		KeyUploaded:   "Ihr Foto ist online",
	},
	"es": {
		KeySmile:      "¡Sonríe!",
		KeyIntro:      "Pulsa el botón",
		KeyProcessing: "Procesando...",
		KeyUploaded:   "Tu foto está en línea",
	},
	"it": {
		KeySmile:      "Sorridi!",
		KeyIntro:      "Premi il pulsante",
		KeyProcessing: "Elaborazione...",
		KeyUploaded:   "La tua foto è online",
	},
	"nl": {
		KeySmile:      "Lachen!",
		KeyIntro:      "Druk op de knop",
		KeyProcessing: "Verwerken...",
		KeyUploaded:   "Je foto staat online",
	},
}

// Translator resolves keys for a single language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New builds a translator for lang (BCP 47, e.g. "fr" or "de-CH").
// overrides maps a language to key/text pairs merged over the built-in
// texts; it may add languages. Unsupported languages fall back to English.
func New(lang string, overrides map[string]map[string]string) (*Translator, error) {
	requested, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", lang, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	if err := load(b, builtin); err != nil {
		return nil, err
	}
	if err := load(b, overrides); err != nil {
		return nil, err
	}

	tags := b.Languages()
	matcher := language.NewMatcher(append([]language.Tag{language.English}, tags...))
	_, idx, _ := matcher.Match(requested)
	var tag language.Tag
	if idx == 0 {
		tag = language.English
	} else {
		tag = tags[idx-1]
	}

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}, nil
}

func load(b *catalog.Builder, texts map[string]map[string]string) error {
	langs := make([]string, 0, len(texts))
	for l := range texts {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	for _, l := range langs {
		tag, err := language.Parse(l)
		if err != nil {
			return fmt.Errorf("invalid translation language %q: %w", l, err)
		}
		for key, text := range texts[l] {
			if err := b.SetString(tag, key, escape(text)); err != nil {
				return fmt.Errorf("set %s/%s: %w", l, key, err)
			}
		}
	}
	return nil
}

// Language returns the language actually used for lookups.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Text returns the localized text for key, or key itself when unknown.
// Texts are literal: a '%' is never read as a format verb.
func (t *Translator) Text(key string) string {
	return t.printer.Sprintf(message.Key(key, escape(key)))
}

// escape makes s a format string that prints as s.
func escape(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
