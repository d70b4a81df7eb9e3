package importer

import (
	"context"
	"errors"

	"github.com/haierkeys/fast-library-service/pkg/code"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"
)

func isNotFound(err error) bool {
	return errors.Is(err, code.ErrorFolderNotFound) || errors.Is(err, code.ErrorTagNotFound)
}

// aborted 取消或超时包装为 ErrorImportAborted，其他错误原样返回
func aborted(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(code.ErrorImportAborted, err)
	}
	return err
}
