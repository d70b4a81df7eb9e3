package convert

import (
	"github.com/jinzhu/copier"
)

// StructAssign 把 src 与 dst 同名字段的值复制到 dst
func StructAssign(src any, dst any) error {
	return copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true})
}
