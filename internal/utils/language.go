package utils

import "strings"

// SupportedLanguages are the notification languages the service can
// produce. English is the fallback for anything else.
var SupportedLanguages = []string{"en", "it", "es"}

// NormalizeLanguage lowercases and validates a customer language code.
// Unknown or empty codes fall back to English.
func NormalizeLanguage(lang string) string {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	for _, s := range SupportedLanguages {
		if code == s {
			return s
		}
	}
	return "en"
}
