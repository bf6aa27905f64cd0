package shared

import (
	"fmt"
	"io"
	"os"
)

// Reporter emits formatted report lines to an underlying sink.
type Reporter interface {
	Printf(format string, args ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs a Reporter that writes to the provided io.Writer, falling back to standard output.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return writerReporter{writer: writer}
}

func (reporter writerReporter) Printf(format string, args ...any) {
	fmt.Fprintf(reporter.writer, format, args...)
}
