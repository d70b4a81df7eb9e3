package domain

import (
	"fmt"
	"strings"
	"time"
)

// Library 库领域模型
type Library struct {
	ID        string
	Name      string
	Path      string
	Config    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LibraryConfig 打开库的配置
// Raw 为客户端提交的原始配置，原样保存并在连接响应中回显
type LibraryConfig struct {
	ID   string
	Name string
	// Path sqlite 库文件所在目录或文件路径，为空时使用默认数据目录
	Path string
	Raw  map[string]any
}

// ParseLibraryConfig 从原始配置中提取 id、name 与 path
// path 可以位于顶层，也可以位于 customFields.path
func ParseLibraryConfig(raw map[string]any) (LibraryConfig, error) {
	cfg := LibraryConfig{Raw: raw}
	if raw == nil {
		return cfg, fmt.Errorf("library config is empty")
	}

	cfg.ID = strings.TrimSpace(stringField(raw, "id"))
	if cfg.ID == "" {
		return cfg, fmt.Errorf("library config requires an id")
	}
	cfg.Name = stringField(raw, "name")
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}

	cfg.Path = stringField(raw, "path")
	if custom, ok := raw["customFields"].(map[string]any); ok && cfg.Path == "" {
		cfg.Path = stringField(custom, "path")
	}
	return cfg, nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
