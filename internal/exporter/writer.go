package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/fs"
	"github.com/robotomize/go-testrail-xray/internal/hierarchy"
	"github.com/robotomize/go-testrail-xray/internal/interchange"
	"github.com/robotomize/go-testrail-xray/internal/xray"
)

const TimestampLayout = "20060102-150405"

var ErrInvalidFormat = errors.New("invalid export format")

type Format string

const (
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
	FormatBoth Format = "both"
)

// ParseFormat accepts xml, csv or both in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXML, FormatCSV, FormatBoth:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

func (f Format) xml() bool {
	return f == FormatXML || f == FormatBoth
}

func (f Format) csv() bool {
	return f == FormatCSV || f == FormatBoth
}

// WriteError reports a failure to write an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Result lists the files produced for one project.
type Result struct {
	Project string
	XMLPath string
	CSVPath string
	Cases   int
	Rows    int
}

type WriterOption func(*Writer)

func WithFormat(f Format) WriterOption {
	return func(w *Writer) {
		w.format = f
	}
}

// WithEndpoint sets the address used to rewrite attachment links in the CSV.
func WithEndpoint(endpoint string) WriterOption {
	return func(w *Writer) {
		w.endpoint = endpoint
	}
}

func WithColumns(cols ...xray.Column) WriterOption {
	return func(w *Writer) {
		w.columns = cols
	}
}

func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// Writer stores export documents in a directory.
type Writer struct {
	dir      string
	format   Format
	endpoint string
	columns  []xray.Column
	now      func() time.Time
}

func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := Writer{dir: dir, format: FormatBoth, now: time.Now}
	for _, o := range opts {
		o(&w)
	}

	return &w
}

// Write serializes doc and stores the files selected by the format. The CSV is produced
// from the serialized XML so both files describe the same document.
func (w *Writer) Write(ctx context.Context, doc *hierarchy.Document) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := interchange.Marshal(doc)
	if err != nil {
		return Result{}, fmt.Errorf("interchange.Marshal: %w", err)
	}

	result := Result{Project: doc.Project, Cases: doc.CaseCount()}
	ts := w.now().Format(TimestampLayout)
	name := SanitizeFileName(doc.Project)

	if w.format.xml() {
		pth := filepath.Join(w.dir, fmt.Sprintf("%s_export_%s.xml", name, ts))
		if err := writeFile(pth, data); err != nil {
			return Result{}, err
		}
		result.XMLPath = pth
	}

	if w.format.csv() {
		var buf bytes.Buffer
		table, err := xray.Convert(
			bytes.NewReader(data), &buf,
			xray.WithEndpoint(w.endpoint),
			xray.WithColumns(w.columns...),
		)
		if err != nil {
			return Result{}, fmt.Errorf("xray.Convert: %w", err)
		}

		pth := filepath.Join(w.dir, fmt.Sprintf("%s_xray_export_%s.csv", name, ts))
		if err := writeFile(pth, buf.Bytes()); err != nil {
			return Result{}, err
		}
		result.CSVPath = pth
		result.Rows = len(table.Rows)
	}

	ctxlog.FromContext(ctx).Info(
		"export written",
		"project", result.Project,
		"xml", result.XMLPath,
		"csv", result.CSVPath,
		"cases", result.Cases,
	)

	return result, nil
}

func writeFile(pth string, data []byte) error {
	err := fs.WriteFile(
		pth, func(w io.Writer) error {
			if _, err := w.Write(data); err != nil {
				return fmt.Errorf("file Write: %w", err)
			}

			return nil
		},
	)
	if err != nil {
		return &WriteError{Path: pth, Err: err}
	}

	return nil
}

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	`\`, "-",
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFileName turns a project name into a safe file name prefix.
func SanitizeFileName(name string) string {
	name = strings.Trim(fileNameReplacer.Replace(name), ". ")
	if name == "" {
		return "unnamed_project"
	}

	return name
}
