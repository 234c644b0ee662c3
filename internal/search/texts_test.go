package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeTranslator records calls and answers from a canned map.
type fakeTranslator struct {
	calls   int
	answers map[string]string
	err     error
}

func (f *fakeTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if out, ok := f.answers[targetLang+"/"+text]; ok {
		return out, nil
	}
	return "(" + targetLang + ") " + text, nil
}

func benefitPayload() map[string]interface{} {
	return map[string]interface{}{
		"name_ko": "외국인 정착 지원",
		"desc_ko": "정착 초기 외국인 주민을 위한 지원 프로그램입니다.",
		"i18n": map[string]interface{}{
			"en": map[string]interface{}{
				"name": "Settlement Support",
				"desc": "Support program for newly arrived residents.",
			},
			"ja": map[string]interface{}{
				"name": "定住支援",
				// desc intentionally absent
			},
		},
	}
}

func TestPickTextI18nEntry(t *testing.T) {
	name, desc := pickText(context.Background(), benefitPayload(), "en", nil)
	if name != "Settlement Support" {
		t.Errorf("name = %q, want the i18n entry", name)
	}
	if desc != "Support program for newly arrived residents." {
		t.Errorf("desc = %q, want the i18n entry", desc)
	}
}

func TestPickTextI18nFieldFallback(t *testing.T) {
	// The ja entry has a name but no desc: desc falls back to the native text
	// field by field.
	name, desc := pickText(context.Background(), benefitPayload(), "ja", nil)
	if name != "定住支援" {
		t.Errorf("name = %q, want the i18n name", name)
	}
	if !strings.Contains(desc, "지원 프로그램") {
		t.Errorf("desc = %q, want the native description", desc)
	}
}

func TestPickTextNativeLanguage(t *testing.T) {
	tr := &fakeTranslator{}
	name, _ := pickText(context.Background(), benefitPayload(), "ko", tr)
	if name != "외국인 정착 지원" {
		t.Errorf("name = %q, want native text", name)
	}
	if tr.calls != 0 {
		t.Errorf("native-language lookup must not call the translator, got %d calls", tr.calls)
	}
}

func TestPickTextMachineTranslation(t *testing.T) {
	payload := benefitPayload()
	delete(payload, "i18n")

	tr := &fakeTranslator{answers: map[string]string{
		"vi/외국인 정착 지원": "Hỗ trợ định cư",
	}}
	name, desc := pickText(context.Background(), payload, "vi", tr)
	if name != "Hỗ trợ định cư" {
		t.Errorf("name = %q, want machine translation", name)
	}
	if !strings.HasPrefix(desc, "(vi) ") {
		t.Errorf("desc = %q, want machine translation", desc)
	}
	if tr.calls != 2 {
		t.Errorf("expected one call per field, got %d", tr.calls)
	}
}

func TestPickTextTranslationFailureDegradesToNative(t *testing.T) {
	payload := benefitPayload()
	delete(payload, "i18n")

	tr := &fakeTranslator{err: errors.New("provider down")}
	name, desc := pickText(context.Background(), payload, "vi", tr)
	if name != "외국인 정착 지원" {
		t.Errorf("name = %q, want native fallback", name)
	}
	if !strings.Contains(desc, "지원 프로그램") {
		t.Errorf("desc = %q, want native fallback", desc)
	}
}

func TestPickTextNilTranslator(t *testing.T) {
	payload := benefitPayload()
	delete(payload, "i18n")

	name, _ := pickText(context.Background(), payload, "vi", nil)
	if name != "외국인 정착 지원" {
		t.Errorf("name = %q, want native text when translation is disabled", name)
	}
}

func TestPickTextTruncatesDescription(t *testing.T) {
	payload := map[string]interface{}{
		"name_ko": "이름",
		"desc_ko": strings.Repeat("가", 700),
	}
	_, desc := pickText(context.Background(), payload, "ko", nil)
	if got := utf8.RuneCountInString(desc); got != 600 {
		t.Errorf("description length = %d runes, want 600", got)
	}
}

func TestCachedTranslatorMemoizes(t *testing.T) {
	inner := &fakeTranslator{}
	cached, err := NewCachedTranslator(inner, 16)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	first, err := cached.Translate(ctx, "문장", "en")
	if err != nil {
		t.Fatal(err)
	}
	second, err := cached.Translate(ctx, "문장", "en")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("cached result %q differs from first %q", second, first)
	}
	if inner.calls != 1 {
		t.Errorf("inner translator called %d times, want 1", inner.calls)
	}

	// Same text, different target language is a distinct entry.
	if _, err := cached.Translate(ctx, "문장", "ja"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner translator called %d times after new language, want 2", inner.calls)
	}
}

func TestCachedTranslatorDoesNotCacheErrors(t *testing.T) {
	inner := &fakeTranslator{err: errors.New("transient")}
	cached, err := NewCachedTranslator(inner, 4)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := cached.Translate(ctx, "문장", "en"); err == nil {
		t.Fatal("expected error from inner translator")
	}

	inner.err = nil
	out, err := cached.Translate(ctx, "문장", "en")
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Error("expected a translation once the inner translator recovers")
	}
	if inner.calls != 2 {
		t.Errorf("inner translator called %d times, want 2 (errors are not cached)", inner.calls)
	}
}

func TestCachedTranslatorEviction(t *testing.T) {
	inner := &fakeTranslator{}
	cached, err := NewCachedTranslator(inner, 2)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		if _, err := cached.Translate(ctx, text, "en"); err != nil {
			t.Fatal(err)
		}
	}
	// "a" was evicted by "c"; translating it again hits the inner translator.
	if _, err := cached.Translate(ctx, "a", "en"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 4 {
		t.Errorf("inner translator called %d times, want 4 after eviction", inner.calls)
	}
}
