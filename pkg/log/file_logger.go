package log

import (
	"bufio"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// captureBufferSize holds a few scan pages of frames before hitting the disk.
const captureBufferSize = 32 * 1024

// FileLogger appends CBOR capture records to a file. Records are buffered;
// an error event or Close flushes them, so a capture of a failed exchange
// is complete on disk even if the process is killed afterwards.
type FileLogger struct {
	mu     sync.Mutex
	file   afero.File
	buf    *bufio.Writer
	enc    *cbor.Encoder
	err    error
	closed bool
}

// NewFileLogger opens (or creates) a capture file on the OS filesystem.
func NewFileLogger(path string) (*FileLogger, error) {
	return NewFileLoggerFs(afero.NewOsFs(), path)
}

// NewFileLoggerFs opens (or creates) a capture file on fs for appending.
func NewFileLoggerFs(fs afero.Fs, path string) (*FileLogger, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, captureBufferSize)
	return &FileLogger{file: f, buf: buf, enc: NewEncoder(buf)}, nil
}

// Log appends the event. Write failures never reach the provisioning flow;
// the first one is kept and returned by Close.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.err != nil {
		return
	}
	l.err = l.enc.Encode(event)
	if l.err == nil && event.Category == CategoryError {
		l.err = l.buf.Flush()
	}
}

// Close flushes pending records and closes the file. Later calls and later
// Log calls do nothing.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.err == nil {
		l.err = l.buf.Flush()
	}
	return multierr.Append(l.err, l.file.Close())
}

var _ Logger = (*FileLogger)(nil)
