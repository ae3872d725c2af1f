package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// Message ids shared by the alert pipeline and the notification feed
const (
	MsgAlert                      = "AlertMessage"
	MsgHelpComingTitle            = "HelpComingTitle"
	MsgHelpComing                 = "HelpComingMessage"
	MsgHelpComingWithETA          = "HelpComingMessageWithETA"
	MsgProviderDeclinedTitle      = "ProviderDeclinedTitle"
	MsgProviderDeclined           = "ProviderDeclinedMessage"
	MsgProviderDeclinedWithReason = "ProviderDeclinedMessageWithReason"
	MsgResourcesFoundTitle        = "ResourcesFoundTitle"
	MsgResourcesFound             = "ResourcesFoundMessage"
	MsgEmergencyAlertTitle        = "EmergencyAlertTitle"
	MsgEmergencyAlert             = "EmergencyAlertMessage"
	MsgContactSMS                 = "ContactSMS"
)

//go:embed locales/*.json
var locales embed.FS

// Translator renders user-facing texts in the user's preferred language.
type Translator struct {
	bundle *i18n.Bundle
}

// NewTranslator loads the embedded catalogs. English is the fallback.
func NewTranslator() (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}
	for _, entry := range entries {
		path := "locales/" + entry.Name()
		buf, err := locales.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if _, err := bundle.ParseMessageFileBytes(buf, path); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	return &Translator{bundle: bundle}, nil
}

// T renders messageID for lang. Unknown languages fall back to English and
// unknown ids are returned as-is.
func (t *Translator) T(lang, messageID string, data map[string]interface{}) string {
	localizer := i18n.NewLocalizer(t.bundle, lang, language.English.String())

	text, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		log.Warn().Err(err).Str("message_id", messageID).Str("lang", lang).Msg("translation failed")
		return messageID
	}

	return strings.TrimSpace(text)
}

// Languages lists the tags with a loaded catalog.
func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}
