package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/service"
	"github.com/haierkeys/fast-library-service/pkg/code"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"
	"github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
)

// Request 一次导入：从 Source 读取旧版库，写入 LibraryID 对应的库
type Request struct {
	Source    string
	LibraryID string
	// Path 目标库位置，为空使用默认数据目录
	Path string
}

// LibraryConfig 目标库的打开配置
func (r Request) LibraryConfig() domain.LibraryConfig {
	raw := map[string]any{"id": r.LibraryID}
	if r.Path != "" {
		raw["path"] = r.Path
	}
	return domain.LibraryConfig{ID: r.LibraryID, Name: r.LibraryID, Path: r.Path, Raw: raw}
}

// Import 读取源文件、打开目标库并执行导入，结束后释放目标库
func Import(ctx context.Context, svc service.LibraryService, req Request, opts Options, lg *zap.Logger) (*Result, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	if strings.TrimSpace(req.Source) == "" {
		return nil, fmt.Errorf("import source is empty")
	}
	if strings.TrimSpace(req.LibraryID) == "" {
		return nil, fmt.Errorf("import library id is empty")
	}

	src, err := ReadSource(ctx, req.Source)
	if err != nil {
		return nil, pkgerrors.Wrap(code.ErrorImportSourceRead, err)
	}
	lg.Info("import source loaded",
		zap.String(logger.FieldLibraryID, req.LibraryID),
		zap.String("source", req.Source),
		zap.Int("folders", len(src.Folders)),
		zap.Int("tags", len(src.Tags)),
		zap.Int("files", len(src.Files)))

	store, err := svc.Open(ctx, req.LibraryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(context.Background()); cerr != nil {
			lg.Warn("import release library failed", zap.String(logger.FieldLibraryID, req.LibraryID), zap.Error(cerr))
		}
	}()

	return NewPipeline(store, lg).Convert(ctx, src, opts)
}
