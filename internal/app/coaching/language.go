package coaching

import "strings"

// Language is one entry of the supported language catalogue.
type Language struct {
	Code  string `json:"code"`  // "HI"
	Name  string `json:"name"`  // "Hindi"
	Voice string `json:"voice"` // BCP 47 locale, "hi-IN"
	TTS   string `json:"tts"`   // short code, "hi"
}

var languages = []Language{
	{Code: "EN", Name: "English", Voice: "en-US", TTS: "en"},
	{Code: "HI", Name: "Hindi", Voice: "hi-IN", TTS: "hi"},
	{Code: "TE", Name: "Telugu", Voice: "te-IN", TTS: "te"},
	{Code: "TA", Name: "Tamil", Voice: "ta-IN", TTS: "ta"},
	{Code: "BN", Name: "Bengali", Voice: "bn-IN", TTS: "bn"},
	{Code: "MR", Name: "Marathi", Voice: "mr-IN", TTS: "mr"},
	{Code: "GU", Name: "Gujarati", Voice: "gu-IN", TTS: "gu"},
	{Code: "KN", Name: "Kannada", Voice: "kn-IN", TTS: "kn"},
	{Code: "ML", Name: "Malayalam", Voice: "ml-IN", TTS: "ml"},
}

var languageNames = func() map[string]string {
	m := make(map[string]string, len(languages))
	for _, l := range languages {
		m[l.Code] = l.Name
	}
	return m
}()

// Languages returns the supported languages keyed by their lowercase code.
func Languages() map[string]Language {
	out := make(map[string]Language, len(languages))
	for _, l := range languages {
		out[l.TTS] = l
	}
	return out
}

// LanguageName maps a short language code ("hi") to the name used in the
// prompt ("Hindi"). Unknown codes are passed through; empty means English.
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "English"
	}
	if name, ok := languageNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}
