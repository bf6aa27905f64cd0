package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes and flushes buffered sinks after every write so report
// lines interleave correctly with log output on CI consoles.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewFlushingWriter wraps the provided writer. Nil writers and already wrapped writers are returned unchanged.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when it supports flushing.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	if flushableWriter, implementsFlush := flushingWriter.writer.(flusher); implementsFlush {
		return bytesWritten, flushableWriter.Flush()
	}
	return bytesWritten, nil
}
