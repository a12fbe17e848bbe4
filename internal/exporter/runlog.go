package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robotomize/go-testrail-xray/internal/fs"
)

const LogDirName = "logs"

// OpenRunLog creates the detailed log file of an export run under <dir>/logs.
func OpenRunLog(dir string, now time.Time) (*os.File, error) {
	logDir := filepath.Join(dir, LogDirName)
	if err := fs.Mkdir(logDir); err != nil {
		return nil, &WriteError{Path: logDir, Err: err}
	}

	pth := filepath.Join(logDir, fmt.Sprintf("trxray_export_%s.log", now.Format(TimestampLayout)))
	file, err := os.OpenFile(pth, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &WriteError{Path: pth, Err: err}
	}

	return file, nil
}
