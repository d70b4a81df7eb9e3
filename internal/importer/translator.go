package importer

import (
	"strconv"
	"strings"
)

// Translator 单次导入内的源 ID 到目标 ID 映射，文件夹与标签各自独立
// 未登记的 ID 查询结果为不存在，调用方应丢弃该引用
type Translator struct {
	scope string
	ids   map[int64]int64
}

func NewTranslator(scope string) *Translator {
	return &Translator{scope: scope, ids: make(map[int64]int64)}
}

// Scope 返回作用域名称
func (t *Translator) Scope() string {
	return t.scope
}

// Record 登记 source -> target
func (t *Translator) Record(source, target int64) {
	t.ids[source] = target
}

// Resolve 查询目标 ID
func (t *Translator) Resolve(source int64) (int64, bool) {
	target, ok := t.ids[source]
	return target, ok
}

func (t *Translator) Len() int {
	return len(t.ids)
}

// ResolveAll 翻译 ID 列表，丢弃未登记的 ID 并去重，保持顺序
func (t *Translator) ResolveAll(sources []int64) []int64 {
	out := make([]int64, 0, len(sources))
	seen := make(map[int64]struct{}, len(sources))
	for _, s := range sources {
		target, ok := t.Resolve(s)
		if !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// ResolveFirst 返回第一个可翻译的 ID
func (t *Translator) ResolveFirst(sources []int64) (int64, bool) {
	for _, s := range sources {
		if target, ok := t.Resolve(s); ok {
			return target, true
		}
	}
	return 0, false
}

// ParseIDList 解析以 | 分隔的 ID 列表，忽略空段与非数字段
func ParseIDList(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
