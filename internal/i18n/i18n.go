package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const (
	LangRU = "ru"
	LangEN = "en"
)

//go:embed locales/*.json
var localeFS embed.FS

// Manager serves translated strings for every embedded locale.
type Manager struct {
	bundle          *goi18n.Bundle
	defaultLanguage string
	supported       []string
	tags            []language.Tag
	matcher         language.Matcher
	localizers      map[string]*goi18n.Localizer
}

func NewManager(defaultLanguage string) (*Manager, error) {
	return newManager(defaultLanguage, localeFS)
}

func newManager(defaultLanguage string, files fs.FS) (*Manager, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := fs.ReadDir(files, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	manager := &Manager{bundle: bundle, localizers: map[string]*goi18n.Localizer{}}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if code == "" {
			continue
		}
		messageFile, err := bundle.LoadMessageFileFS(files, "locales/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", code, err)
		}
		if len(messageFile.Messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", code)
		}
		manager.supported = append(manager.supported, code)
	}

	for _, required := range []string{LangEN, LangRU} {
		if !manager.isSupported(required) {
			return nil, fmt.Errorf("required locale %q missing", required)
		}
	}

	sort.Strings(manager.supported)
	for _, code := range manager.supported {
		manager.tags = append(manager.tags, language.Make(code))
		manager.localizers[code] = goi18n.NewLocalizer(bundle, code)
	}
	manager.matcher = language.NewMatcher(manager.tags)
	manager.defaultLanguage = LangEN
	manager.defaultLanguage = manager.NormalizeLanguage(defaultLanguage)
	return manager, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

func (manager *Manager) NormalizeLanguage(raw string) string {
	normalized := normalizeLanguageTag(raw)
	if manager.isSupported(normalized) {
		return normalized
	}
	return manager.defaultLanguage
}

// DetectFromAcceptLanguage picks the best supported language for an
// Accept-Language header, falling back to the default.
func (manager *Manager) DetectFromAcceptLanguage(raw string) string {
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return manager.defaultLanguage
	}
	_, index, confidence := manager.matcher.Match(tags...)
	if confidence == language.No {
		return manager.defaultLanguage
	}
	return manager.supported[index]
}

// Translate returns the message for key, or key itself when no locale has it.
func (manager *Manager) Translate(lang string, key string) string {
	return manager.localize(lang, &goi18n.LocalizeConfig{MessageID: key}, key)
}

// TranslateData fills the message template with data.
func (manager *Manager) TranslateData(lang string, key string, data map[string]any) string {
	return manager.localize(lang, &goi18n.LocalizeConfig{MessageID: key, TemplateData: data}, key)
}

// TranslatePlural selects the plural form for count; count is also exposed
// to the template under countField.
func (manager *Manager) TranslatePlural(lang string, key string, countField string, count int) string {
	return manager.localize(lang, &goi18n.LocalizeConfig{
		MessageID:    key,
		PluralCount:  count,
		TemplateData: map[string]any{countField: count},
	}, key)
}

func (manager *Manager) localize(lang string, config *goi18n.LocalizeConfig, fallback string) string {
	localizer := manager.localizers[manager.NormalizeLanguage(lang)]
	message, err := localizer.Localize(config)
	if err != nil || strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}

func (manager *Manager) isSupported(lang string) bool {
	for _, code := range manager.supported {
		if code == lang {
			return true
		}
	}
	return false
}

func normalizeLanguageTag(raw string) string {
	lang := strings.ToLower(strings.TrimSpace(raw))
	lang = strings.ReplaceAll(lang, "_", "-")
	if separator := strings.Index(lang, "-"); separator >= 0 {
		lang = lang[:separator]
	}
	return lang
}
