package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectKeyFor 根据原始文件名生成存储对象名：<毫秒时间戳>-<安全文件名><.扩展名>。
// 非 ASCII 字符会被剔除以避开存储层的编码问题；剔除后为空时使用 8 位随机串。
func ObjectKeyFor(filename string, now time.Time) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}

	ext := ""
	if cleaned := sanitizeASCII(strings.TrimPrefix(filepath.Ext(base), ".")); cleaned != "" {
		ext = "." + cleaned
	}
	stem := sanitizeASCII(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = randomSuffix()
	}

	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), stem, strings.ToLower(ext))
}

func sanitizeASCII(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
