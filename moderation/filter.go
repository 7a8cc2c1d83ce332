package moderation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

// Filter censors text with the dictionary of its detected language. When the
// detection is unreliable or the language has no dictionary, every word of
// every language is applied.
type Filter struct {
	byLang map[string]Moderator
	all    Moderator
	log    *slog.Logger
}

func NewFilter(dictionaries Dictionaries, censoredChar rune, log *slog.Logger) (*Filter, error) {
	all, err := NewModerator(dictionaries.Words(), censoredChar, log)
	if err != nil {
		return nil, err
	}
	byLang := make(map[string]Moderator, len(dictionaries))
	for lang, words := range dictionaries {
		if byLang[lang], err = NewModerator(words, censoredChar, log); err != nil {
			return nil, err
		}
	}
	log.Info("Content filter ready", "languages", len(byLang), "words", len(all.words))
	return &Filter{byLang: byLang, all: all, log: log}, nil
}

// Sanitize implements contract.ContentFilter.
func (f *Filter) Sanitize(text string) string {
	lang, moderator := f.moderatorFor(text)
	censored, words := moderator.Censor(text)
	if len(words) > 0 {
		f.log.Debug("Message censored", "lang", lang, "words", len(words))
	}
	return censored
}

func (f *Filter) moderatorFor(text string) (string, *Moderator) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", &f.all
	}
	lang := info.Lang.Iso6391()
	if m, ok := f.byLang[lang]; ok {
		return lang, &m
	}
	return lang, &f.all
}
