package model

// Language is a programming-language filter for the repository search
type Language string

const (
	LanguageAll        Language = "All"
	LanguageJavascript Language = "Javascript"
	LanguageRuby       Language = "Ruby"
	LanguageJava       Language = "Java"
	LanguageCSS        Language = "CSS"
	LanguagePython     Language = "Python"
)

// DefaultLanguage is selected when a new session starts
const DefaultLanguage = LanguageAll

var supportedLanguages = []Language{
	LanguageAll,
	LanguageJavascript,
	LanguageRuby,
	LanguageJava,
	LanguageCSS,
	LanguagePython,
}

// Languages returns the fixed list of languages used to build a selector
// a copy is returned so callers can't reorder the shared list
func Languages() []Language {
	languages := make([]Language, len(supportedLanguages))
	copy(languages, supportedLanguages)
	return languages
}

// IsSupported reports whether the language belongs to the fixed list
// the cache itself accepts any value, this is only used for display
func (l Language) IsSupported() bool {
	for _, supported := range supportedLanguages {
		if supported == l {
			return true
		}
	}

	return false
}
