package code

import (
	"fmt"
	"net/http"
	"strings"
)

type Code struct {
	// 状态码
	code int
	// 状态
	status bool
	// 错误消息
	Lang lang
	// 数据
	data interface{}
	// 是否含有Data
	haveData bool
	// 错误详细信息
	details []string
	// 是否含有详情
	haveDetails bool
}

var codes = map[int]string{}
var sussCodes = map[int]string{}

func NewError(code int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("错误码 %d 已经存在，请更换一个", code))
	}
	codes[code] = l.GetMessage()
	return &Code{code: code, status: false, Lang: l}
}

func NewSuss(code int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("成功码 %d 已经存在，请更换一个", code))
	}
	sussCodes[code] = l.GetMessage()
	return &Code{code: code, status: true, Lang: l}
}

// Clone 创建一个不带 data/details 的副本
// Catalog entries are shared package values, so every With* call works on a copy.
func (e *Code) Clone() *Code {
	return &Code{
		code:   e.code,
		status: e.status,
		Lang:   e.Lang,
	}
}

// Error 实现 error 接口，带详情时拼接在消息之后
func (e *Code) Error() string {
	if e.haveDetails && len(e.details) > 0 {
		return e.Msg() + ": " + strings.Join(e.details, ", ")
	}
	return e.Msg()
}

// Is reports whether target carries the same code, so clones still match their catalog entry.
func (e *Code) Is(target error) bool {
	t, ok := target.(*Code)
	if !ok {
		return false
	}
	return t.code == e.code
}

func (e *Code) Code() int {
	return e.code
}

func (e *Code) Status() bool {
	return e.status
}

// StatusCode 映射为 HTTP 状态码
func (e *Code) StatusCode() int {
	switch {
	case e.status:
		return http.StatusOK
	case e.code == ErrorServerInternal.code:
		return http.StatusInternalServerError
	case e.code == ErrorTooManyRequests.code:
		return http.StatusTooManyRequests
	case e.code == ErrorNotFound.code:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (e *Code) Msg() string {
	return e.Lang.GetMessage()
}

func (e *Code) Details() []string {
	return e.details
}

func (e *Code) Data() interface{} {
	return e.data
}

func (e *Code) HaveDetails() bool {
	return e.haveDetails
}

func (e *Code) HaveData() bool {
	return e.haveData
}

func (e *Code) WithData(data interface{}) *Code {
	c := e.clonePreserving()
	c.haveData = true
	c.data = data
	return c
}

func (e *Code) WithDetails(details ...string) *Code {
	c := e.clonePreserving()
	c.haveDetails = true
	c.details = append([]string{}, details...)
	return c
}

func (e *Code) clonePreserving() *Code {
	c := e.Clone()
	c.data, c.haveData = e.data, e.haveData
	c.details, c.haveDetails = e.details, e.haveDetails
	return c
}
