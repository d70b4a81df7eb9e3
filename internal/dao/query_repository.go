package dao

import (
	"context"
	"errors"
	"strings"

	"github.com/haierkeys/fast-library-service/internal/domain"

	"gorm.io/gorm"
)

// ErrNotReadOnly 语句不是单条只读 SELECT
var ErrNotReadOnly = errors.New("only a single read-only SELECT statement is allowed")

type queryRepository struct {
	dao *Dao
}

func NewQueryRepository(d *Dao) domain.QueryRepository {
	return &queryRepository{dao: d}
}

var _ domain.QueryRepository = (*queryRepository)(nil)

// Select 在始终回滚的事务中执行只读查询
func (r *queryRepository) Select(ctx context.Context, expression string, lib string) ([]map[string]any, error) {
	stmt, err := NormalizeSelect(expression)
	if err != nil {
		return nil, err
	}
	db, err := r.dao.LibraryDB(lib)
	if err != nil {
		return nil, err
	}

	rows := []map[string]any{}
	tx := db.WithContext(ctx).Session(&gorm.Session{}).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer tx.Rollback()

	if err := tx.Raw(stmt).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
	}
	return rows, nil
}

// NormalizeSelect 校验并返回去除结尾分号的 SELECT 语句
// 引号内的分号属于字面量，引号外的分号视为多条语句
func NormalizeSelect(expression string) (string, error) {
	stmt := strings.TrimSpace(expression)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, ";"))
	if stmt == "" || hasStatementSeparator(stmt) {
		return "", ErrNotReadOnly
	}
	lower := strings.ToLower(stmt)
	if !strings.HasPrefix(lower, "select") {
		return "", ErrNotReadOnly
	}
	if len(lower) > 6 {
		if c := lower[6]; c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return "", ErrNotReadOnly
		}
	}
	return stmt, nil
}

// hasStatementSeparator 扫描引号外的分号，未闭合的引号按分隔处理
func hasStatementSeparator(stmt string) bool {
	var quote rune
	for _, r := range stmt {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			return true
		}
	}
	return quote != 0
}
