package whisper

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
)

// modelSource is the pull-based contract the native model loader consumes:
// copy bytes into a buffer, report end of stream, release the source. Short
// deliveries are reported to the loader as-is; it retries until EOF.
type modelSource interface {
	// ReadInto copies at most len(p) bytes into p and returns the count.
	ReadInto(p []byte) int
	// EOF reports whether no further bytes are available.
	EOF() bool
	Close() error
}

const sourceFillChunk = 64 * 1024

// streamSource feeds the native loader from an io.Reader. Reads from the
// underlying reader are buffered so the loader always receives whatever is
// currently available, never more than it asked for.
type streamSource struct {
	r      io.Reader
	log    *slog.Logger
	buf    []byte
	rdErr  error
	copied int64
}

func newStreamSource(r io.Reader, logger *slog.Logger) *streamSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &streamSource{
		r:   r,
		log: logger.With("component", "whisper.loader"),
	}
}

// fill tops the buffer up to target bytes or until the reader reports an
// error. io.EOF is sticky like any other read error.
func (s *streamSource) fill(target int) {
	for len(s.buf) < target && s.rdErr == nil {
		chunk := make([]byte, sourceFillChunk)
		n, err := s.r.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		if err != nil {
			s.rdErr = err
			if err != io.EOF {
				s.log.Warn("model stream read failed", "error", err, "offset", s.copied)
			}
		}
	}
}

func (s *streamSource) ReadInto(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	s.fill(len(p))
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	s.copied += int64(n)
	if n < len(p) {
		s.log.Info("short model read",
			"requested", len(p),
			"copied", n,
			"offset", s.copied,
		)
	}
	return n
}

func (s *streamSource) EOF() bool {
	if len(s.buf) > 0 {
		return false
	}
	s.fill(1)
	return len(s.buf) == 0
}

func (s *streamSource) Close() error {
	if closer, ok := s.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// fsSource feeds the native loader from a packaged read-only asset. The
// remaining byte count doubles as the end-of-stream signal.
type fsSource struct {
	file      fs.File
	log       *slog.Logger
	remaining int64
}

func newFSSource(fsys fs.FS, path string, logger *slog.Logger) (*fsSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "whisper.loader", "asset", path)
	file, err := fsys.Open(path)
	if err != nil {
		logger.Warn("failed to open model asset", "error", err)
		return nil, fmt.Errorf("whisper: open asset %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("whisper: stat asset %s: %w", path, err)
	}
	return &fsSource{
		file:      file,
		log:       logger,
		remaining: info.Size(),
	}, nil
}

func (s *fsSource) ReadInto(p []byte) int {
	if len(p) == 0 || s.remaining <= 0 {
		return 0
	}
	want := len(p)
	if int64(want) > s.remaining {
		want = int(s.remaining)
	}
	total := 0
	for total < want {
		n, err := s.file.Read(p[total:want])
		total += n
		if err != nil {
			break
		}
	}
	s.remaining -= int64(total)
	if total < len(p) {
		s.log.Info("short asset read",
			"requested", len(p),
			"copied", total,
			"remaining", s.remaining,
		)
	}
	return total
}

func (s *fsSource) EOF() bool {
	return s.remaining <= 0
}

func (s *fsSource) Close() error {
	return s.file.Close()
}
