package locale

import (
	"fmt"
	"time"
)

// Pick returns the text matching the request language, defaulting to Chinese.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return chinese
	}
	if chinese != "" {
		return chinese
	}
	return english
}

// FormatDay 按语言格式化日期，调用方负责先转换到参考时区
func FormatDay(language string, t time.Time) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		return t.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}

// WateringStatus 返回卡片上显示的浇水状态
func WateringStatus(language string, wateredToday bool, count int) string {
	english := NormalizeLanguage(language) == LanguageEnglish
	switch {
	case wateredToday && english:
		return "Watered today"
	case wateredToday:
		return "今天已浇水"
	case count == 0 && english:
		return "Never watered"
	case count == 0:
		return "还没有浇过水"
	case english:
		return "Needs water"
	}
	return "待浇水"
}
