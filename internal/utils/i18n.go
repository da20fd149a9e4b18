package utils

// Minimal server-side i18n for fixed keys.
// UI strings should live in the frontend; server provides only essentials.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":          "ok",
		"error.internal":     "internal error",
		"error.unauthorized": "unauthorized",
	},
	"vi": {
		"health.ok":          "ổn",
		"error.internal":     "lỗi hệ thống",
		"error.unauthorized": "chưa đăng nhập",
	},
	"ja": {
		"health.ok":          "正常",
		"error.internal":     "内部エラー",
		"error.unauthorized": "認証が必要です",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
