// Package util 提供通用工具函数
package util

import (
	"regexp"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SafeKey 将任意标识转换为可用于文件名或数据库名的形式
// 例如: SafeKey("library-1") => "library-1", SafeKey("a/b c") => "a_b_c"
func SafeKey(s string) string {
	return unsafeKeyChars.ReplaceAllString(s, "_")
}
