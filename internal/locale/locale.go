package locale

import "strings"

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

// Preference 是一次请求最终使用的语言
type Preference struct {
	Language        string
	ContentLanguage string
}

// NormalizeLanguage 将 zh-CN、en_US 等写法归一为 zh / en，无法识别时返回空串
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case trimmed == "":
		return ""
	case strings.HasPrefix(trimmed, "zh"), trimmed == "cn":
		return LanguageChinese
	case strings.HasPrefix(trimmed, "en"):
		return LanguageEnglish
	}
	return ""
}

func LanguageFromCountryCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "":
		return ""
	case "CN":
		return LanguageChinese
	}
	return LanguageEnglish
}

// LanguageFromAcceptLanguage 按 Accept-Language 中首个可识别的语言返回
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if language := NormalizeLanguage(tag); language != "" {
			return language
		}
	}
	return ""
}

func PreferenceForLanguage(language string) Preference {
	if NormalizeLanguage(language) == LanguageEnglish {
		return Preference{Language: LanguageEnglish, ContentLanguage: "en-US"}
	}
	return Preference{Language: LanguageChinese, ContentLanguage: "zh-CN"}
}
