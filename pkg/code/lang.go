package code

import "errors"

// lang holds the English and Chinese text of one catalog entry
// lang 存储一条消息的英文与中文文本
type lang struct {
	en    string
	zh_cn string
}

const FALLBACK_LNG = "en"

var supportedLanguages = []string{"en", "zh_cn"}

var lng = FALLBACK_LNG

// GetMessage returns the message in the active language, falling back to English
// GetMessage 返回当前语言的消息，缺失时回退到英文
func (l lang) GetMessage() string {
	if lng == "zh_cn" && l.zh_cn != "" {
		return l.zh_cn
	}
	return l.en
}

// GetSupportedLanguages 返回支持的语言列表
func GetSupportedLanguages() []string {
	return append([]string{}, supportedLanguages...)
}

// SetGlobalDefaultLang sets the active language; unknown values reset it to English
// SetGlobalDefaultLang 设置全局语言，未知语言回退为英文
func SetGlobalDefaultLang(language string) error {
	for _, l := range supportedLanguages {
		if l == language {
			lng = language
			return nil
		}
	}
	lng = FALLBACK_LNG
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

func GetGlobalDefaultLang() string {
	return lng
}
