package search

import "context"

// nativeLang is the source language benefit payloads are authored in.
const nativeLang = "ko"

// descMaxChars bounds description text in ranked responses. Truncation is a
// plain rune slice, not word-aware.
const descMaxChars = 600

// pickText resolves a display name and description for one hit under the
// language fallback chain: requested-language i18n entry, then native text,
// then machine translation when enabled, then native text again. Exactly one
// branch runs per hit.
func pickText(ctx context.Context, payload map[string]interface{}, lang string, translator Translator) (string, string) {
	nameNative := payloadString(payload, "name_ko")
	descNative := payloadString(payload, "desc_ko")

	if entry := i18nEntry(payload, lang); entry != nil {
		name := payloadString(entry, "name")
		if name == "" {
			name = nameNative
		}
		desc := payloadString(entry, "desc")
		if desc == "" {
			desc = descNative
		}
		return name, truncate(desc, descMaxChars)
	}

	if lang != nativeLang && translator != nil {
		name, nameErr := translator.Translate(ctx, nameNative, lang)
		desc, descErr := translator.Translate(ctx, descNative, lang)
		// Translation failures degrade to the native text.
		if nameErr == nil && descErr == nil {
			return name, truncate(desc, descMaxChars)
		}
	}

	return nameNative, truncate(descNative, descMaxChars)
}

func i18nEntry(payload map[string]interface{}, lang string) map[string]interface{} {
	i18n, ok := payload["i18n"].(map[string]interface{})
	if !ok {
		return nil
	}
	entry, ok := i18n[lang].(map[string]interface{})
	if !ok {
		return nil
	}
	return entry
}

func payloadString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
