// Package convert 字符串与结构体转换工具
package convert

import (
	"strconv"
	"strings"
)

type StrTo string

func (s StrTo) String() string {
	return string(s)
}

func (s StrTo) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s.String()), 10, 64)
}
