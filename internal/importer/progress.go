package importer

import (
	"fmt"
	"io"
)

// ProgressPrinter 在同一行刷新进度，完成时换行
func ProgressPrinter(w io.Writer) func(Progress) {
	return func(p Progress) {
		pct := p.Percent()
		fmt.Fprintf(w, "\rProcessing %s: %d/%d (%d%%)", p.Stage, p.Processed, p.Total, pct)
		if pct >= 100 {
			fmt.Fprintln(w)
		}
	}
}
