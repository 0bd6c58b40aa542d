package locales

import (
	"embed"
	"encoding/json"
	"log"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.json
var localeFS embed.FS

var (
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
)

// Init loads every embedded catalog into the bundle and fixes the default
// language. Must run before any localizer is created.
func Init(defaultLangCode string) {
	var err error
	defaultLanguage, err = language.Parse(defaultLangCode)
	if err != nil {
		log.Printf("WARN: Bad default language code %q: %v, using English", defaultLangCode, err)
		defaultLanguage = language.English
	}

	bundle = i18n.NewBundle(defaultLanguage)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(".")
	if err != nil {
		log.Fatalf("Failed to read embedded locales: %v", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, entry.Name()); err != nil {
			log.Printf("WARN: Failed to load catalog %s: %v", entry.Name(), err)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		log.Fatalf("No locale catalogs loaded")
	}
	log.Printf("Loaded %d locale catalog(s), default language %s", loaded, defaultLanguage)
}

// GetDefaultLanguageTag returns the language Init was configured with.
func GetDefaultLanguageTag() language.Tag {
	if bundle == nil {
		log.Panicln("locales.Init must run before GetDefaultLanguageTag")
	}
	return defaultLanguage
}

// NewLocalizer creates a localizer for the given language preferences,
// most preferred first.
func NewLocalizer(langPrefs ...string) *i18n.Localizer {
	if bundle == nil {
		log.Panicln("locales.Init must run before NewLocalizer")
	}
	return i18n.NewLocalizer(bundle, langPrefs...)
}

// GetMessage resolves msgID through the localizer. templateData and
// pluralCount are optional. A message missing from every catalog falls back
// to English and, failing that, to the ID itself so the caller always has
// something to send.
func GetMessage(localizer *i18n.Localizer, msgID string, templateData map[string]interface{}, pluralCount *int) string {
	config := &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData,
	}
	if pluralCount != nil {
		config.PluralCount = *pluralCount
	}

	msg, err := localizer.Localize(config)
	if err == nil {
		return msg
	}
	log.Printf("ERROR: Localize %s: %v", msgID, err)

	fallback := i18n.NewLocalizer(bundle, language.English.String())
	if msg, err := fallback.Localize(config); err == nil {
		return msg
	}
	return msgID
}
