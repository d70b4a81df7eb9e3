package importer

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/haierkeys/fast-library-service/pkg/fileurl"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"golang.org/x/sync/errgroup"
)

// SourceFile 旧库 files 表
type SourceFile struct {
	ID        int64
	Title     string
	Size      int64
	Date      int64
	BirthTime int64
	Link      string
	MD5       string
}

// SourceNode 旧库 folders / tags 表，两者结构相同
type SourceNode struct {
	ID     int64
	Title  string
	Icon   string
	Desc   string
	Meta   string
	Parent int64
	CTime  int64
}

// URLMeta url_meta 表
type URLMeta struct {
	FID int64
	URL string
}

// DescMeta desc_meta 表
type DescMeta struct {
	FID  int64
	Desc string
}

// AssocMeta folders_meta / tags_meta 表，IDs 以 | 分隔
type AssocMeta struct {
	FID int64
	IDs string
}

// SourceData 旧库全部数据，按表内顺序保存
type SourceData struct {
	Files       []SourceFile
	Folders     []SourceNode
	Tags        []SourceNode
	URLMeta     []URLMeta
	DescMeta    []DescMeta
	FoldersMeta []AssocMeta
	TagsMeta    []AssocMeta
}

const (
	queryFiles       = "SELECT id, COALESCE(title, ''), CAST(COALESCE(size, 0) AS INTEGER), CAST(COALESCE(date, 0) AS INTEGER), CAST(COALESCE(birthtime, 0) AS INTEGER), COALESCE(link, ''), COALESCE(md5, '') FROM files ORDER BY rowid"
	queryFolders     = "SELECT id, COALESCE(title, ''), COALESCE(icon, ''), COALESCE(\"desc\", ''), COALESCE(meta, ''), CAST(COALESCE(parent, 0) AS INTEGER), CAST(COALESCE(ctime, 0) AS INTEGER) FROM folders ORDER BY rowid"
	queryTags        = "SELECT id, COALESCE(title, ''), COALESCE(icon, ''), COALESCE(\"desc\", ''), COALESCE(meta, ''), CAST(COALESCE(parent, 0) AS INTEGER), CAST(COALESCE(ctime, 0) AS INTEGER) FROM tags ORDER BY rowid"
	queryURLMeta     = "SELECT fid, COALESCE(url, '') FROM url_meta ORDER BY rowid"
	queryDescMeta    = "SELECT fid, COALESCE(\"desc\", '') FROM desc_meta ORDER BY rowid"
	queryFoldersMeta = "SELECT fid, COALESCE(ids, '') FROM folders_meta ORDER BY rowid"
	queryTagsMeta    = "SELECT fid, COALESCE(ids, '') FROM tags_meta ORDER BY rowid"
)

// ReadSource 以只读方式并发读取旧库的七张表
func ReadSource(ctx context.Context, path string) (*SourceData, error) {
	if !fileurl.IsExist(path) {
		return nil, fmt.Errorf("source database not found: %s", path)
	}
	if fileurl.IsDir(path) {
		return nil, fmt.Errorf("source database is a directory: %s", path)
	}
	db, err := sql.Open("sqlite3", "file:"+(&url.URL{Path: path}).EscapedPath()+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open source database: %w", err)
	}
	defer db.Close()

	data := &SourceData{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		data.Files, err = queryAll(ctx, db, queryFiles, func(rows *sql.Rows) (SourceFile, error) {
			var f SourceFile
			err := rows.Scan(&f.ID, &f.Title, &f.Size, &f.Date, &f.BirthTime, &f.Link, &f.MD5)
			return f, err
		})
		return wrapTable("files", err)
	})
	g.Go(func() (err error) {
		data.Folders, err = queryAll(ctx, db, queryFolders, scanNode)
		return wrapTable("folders", err)
	})
	g.Go(func() (err error) {
		data.Tags, err = queryAll(ctx, db, queryTags, scanNode)
		return wrapTable("tags", err)
	})
	g.Go(func() (err error) {
		data.URLMeta, err = queryAll(ctx, db, queryURLMeta, func(rows *sql.Rows) (URLMeta, error) {
			var m URLMeta
			err := rows.Scan(&m.FID, &m.URL)
			return m, err
		})
		return wrapTable("url_meta", err)
	})
	g.Go(func() (err error) {
		data.DescMeta, err = queryAll(ctx, db, queryDescMeta, func(rows *sql.Rows) (DescMeta, error) {
			var m DescMeta
			err := rows.Scan(&m.FID, &m.Desc)
			return m, err
		})
		return wrapTable("desc_meta", err)
	})
	g.Go(func() (err error) {
		data.FoldersMeta, err = queryAll(ctx, db, queryFoldersMeta, scanAssoc)
		return wrapTable("folders_meta", err)
	})
	g.Go(func() (err error) {
		data.TagsMeta, err = queryAll(ctx, db, queryTagsMeta, scanAssoc)
		return wrapTable("tags_meta", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func wrapTable(table string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("read %s: %w", table, err)
}

func scanNode(rows *sql.Rows) (SourceNode, error) {
	var n SourceNode
	err := rows.Scan(&n.ID, &n.Title, &n.Icon, &n.Desc, &n.Meta, &n.Parent, &n.CTime)
	return n, err
}

func scanAssoc(rows *sql.Rows) (AssocMeta, error) {
	var m AssocMeta
	err := rows.Scan(&m.FID, &m.IDs)
	return m, err
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
