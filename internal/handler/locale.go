package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/locale"
)

const (
	localeContextKey  = "plantlog.locale"
	languageCookie    = "pl_lang"
	languageCookieTTL = 365 * 24 * time.Hour
)

// 反向代理或 CDN 写入的国家代码头
var countryHeaders = []string{
	"CF-IPCountry",
	"X-Geo-Country",
	"X-Forwarded-Country",
	"X-Country-Code",
}

// LocaleMiddleware 解析请求语言，写入 Content-Language 与 Vary
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	vary := append([]string{"Accept-Language"}, countryHeaders...)
	return func(c *gin.Context) {
		pref := a.requestLocale(c)
		c.Header("Content-Language", pref.ContentLanguage)

		headers := vary
		if languageFromCookie(c) != "" || locale.NormalizeLanguage(c.Query("lang")) != "" {
			headers = append(headers[:len(headers):len(headers)], "Cookie")
		}
		mergeVary(c, headers)
		c.Next()
	}
}

func (a *API) requestLocale(c *gin.Context) locale.Preference {
	if cached, ok := c.Get(localeContextKey); ok {
		if pref, ok := cached.(locale.Preference); ok {
			return pref
		}
	}

	pref := locale.PreferenceForLanguage(resolveLanguage(c))
	c.Set(localeContextKey, pref)
	return pref
}

// resolveLanguage 依次参考 ?lang、Cookie、国家头与 Accept-Language，默认中文。
// ?lang 显式指定时同时写入 Cookie。
func resolveLanguage(c *gin.Context) string {
	if override := locale.NormalizeLanguage(c.Query("lang")); override != "" {
		rememberLanguage(c, override)
		return override
	}
	if saved := languageFromCookie(c); saved != "" {
		return saved
	}
	for _, header := range countryHeaders {
		code, _, _ := strings.Cut(c.GetHeader(header), ",")
		if language := locale.LanguageFromCountryCode(code); language != "" {
			return language
		}
	}
	if language := locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language")); language != "" {
		return language
	}
	return locale.LanguageChinese
}

func languageFromCookie(c *gin.Context) string {
	value, err := c.Cookie(languageCookie)
	if err != nil {
		return ""
	}
	return locale.NormalizeLanguage(value)
}

func rememberLanguage(c *gin.Context, language string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     languageCookie,
		Value:    language,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(c) == "https",
		MaxAge:   int(languageCookieTTL.Seconds()),
		Expires:  time.Now().Add(languageCookieTTL),
		SameSite: http.SameSiteLaxMode,
	})
}

func requestScheme(c *gin.Context) string {
	if proto, _, _ := strings.Cut(c.GetHeader("X-Forwarded-Proto"), ","); strings.TrimSpace(proto) != "" {
		return strings.ToLower(strings.TrimSpace(proto))
	}
	if c.Request != nil && c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// mergeVary 追加 Vary 头并去重，保留已有顺序
func mergeVary(c *gin.Context, headers []string) {
	seen := make(map[string]bool)
	var merged []string
	for _, token := range append(strings.Split(c.Writer.Header().Get("Vary"), ","), headers...) {
		token = strings.TrimSpace(token)
		if token == "" || seen[strings.ToLower(token)] {
			continue
		}
		seen[strings.ToLower(token)] = true
		merged = append(merged, token)
	}
	if len(merged) > 0 {
		c.Header("Vary", strings.Join(merged, ", "))
	}
}
