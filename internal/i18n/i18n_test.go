package i18n

import (
	"context"
	"testing"

	"github.com/qazedu/examcenter/internal/model"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "QuestionNotFound")
	if got != "Question not found" {
		t.Errorf("T(QuestionNotFound) = %q, want 'Question not found'", got)
	}

	got = T(ctx, "AnswersRequired")
	if got != "Answers are required" {
		t.Errorf("T(AnswersRequired) = %q, want 'Answers are required'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "QuestionNotFound")
	if got != "Вопрос не найден" {
		t.Errorf("T(QuestionNotFound) = %q", got)
	}

	got = T(ctx, "ExamAlreadyStarted")
	if got != "Экзамен уже начат" {
		t.Errorf("T(ExamAlreadyStarted) = %q", got)
	}
}

func TestTranslateKazakh(t *testing.T) {
	ctx := initLang(t, "kk")

	got := T(ctx, "SubjectNotFound")
	if got != "Пән табылмады" {
		t.Errorf("T(SubjectNotFound) = %q", got)
	}
}

func TestLangFor(t *testing.T) {
	if got := LangFor(model.LocaleKazakh); got != "kk" {
		t.Errorf("LangFor(kz) = %q, want kk", got)
	}
	if got := LangFor(model.LocaleRussian); got != "ru" {
		t.Errorf("LangFor(ru) = %q, want ru", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the key itself", got)
	}
}
