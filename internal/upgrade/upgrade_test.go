package upgrade

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haierkeys/fast-library-service/internal/dao"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "lib.sqlite3")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type recordingMigrate struct {
	version string
	calls   *[]string
}

func (m *recordingMigrate) Version() string     { return m.version }
func (m *recordingMigrate) Description() string { return "record " + m.version }
func (m *recordingMigrate) Up(db *gorm.DB, ctx context.Context) error {
	*m.calls = append(*m.calls, m.version)
	return nil
}

func TestRunAppliesInSemverOrderOnce(t *testing.T) {
	db := openTestDB(t)
	var calls []string
	mgr := NewMigrationManager(db, nil,
		&recordingMigrate{version: "1.10.0", calls: &calls},
		&recordingMigrate{version: "1.2.0", calls: &calls},
		&recordingMigrate{version: "bogus", calls: &calls},
	)

	n, err := mgr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"1.2.0", "1.10.0"}, calls)

	n, err = mgr.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	applied, err := mgr.AppliedVersions()
	require.NoError(t, err)
	assert.True(t, applied["1.10.0"])
}

func TestDefaultMigrationsNormalizeLegacyRows(t *testing.T) {
	db := openTestDB(t)
	mgr := NewMigrationManager(db, nil)

	// 先建表再写入旧格式数据
	_, err := NewMigrationManager(db, nil, &recordingMigrate{version: "0.0.1", calls: new([]string)}).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.Exec("INSERT INTO folder (id, title, parent_id) VALUES (1, 'root', 0), (2, 'child', 1)").Error)
	require.NoError(t, db.Exec("INSERT INTO tag (id, title, parent_id) VALUES (1, 't', 0)").Error)
	require.NoError(t, db.Exec("INSERT INTO file (id, name, tags) VALUES (1, 'a', '[]'), (2, 'b', '[\"1\"]')").Error)

	n, err := mgr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var nullParents int64
	require.NoError(t, db.Table("folder").Where("parent_id IS NULL").Count(&nullParents).Error)
	assert.Equal(t, int64(1), nullParents)
	require.NoError(t, db.Table("tag").Where("parent_id IS NULL").Count(&nullParents).Error)
	assert.Equal(t, int64(1), nullParents)

	var nullTags int64
	require.NoError(t, db.Table("file").Where("tags IS NULL").Count(&nullTags).Error)
	assert.Equal(t, int64(1), nullTags)
}
