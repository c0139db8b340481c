package types

import (
	"bufio"
	"os"
)

// FileCursor tracks tailing progress for one log file and is
// checkpointed to IndexPath after each logical line is consumed.
type FileCursor struct {
	LogPath   string
	IndexPath string

	LastLine int64
	LastSize int64

	ReadAheadLine string
	ReadAheadPos  int64
	HasReadAhead  bool

	File   *os.File
	Reader *bufio.Reader
}

// NewFileCursor derives IndexPath from LogPath per spec (log_path + ".index").
func NewFileCursor(logPath string) *FileCursor {
	return &FileCursor{
		LogPath:   logPath,
		IndexPath: logPath + ".index",
	}
}
