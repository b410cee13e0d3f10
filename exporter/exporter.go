// Package exporter implements the export routines that turn a content table
// of the data source into an XML backup file.
package exporter

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"slightbackup/task"

	"github.com/pkg/errors"
)

// PartialSuffix marks a backup file that is still being written.
const PartialSuffix = ".part"

// Queryer is the part of *sql.DB the exporters read through.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Guard refuses to start an export when the destination cannot take it.
type Guard interface {
	Check(dir string) error
}

// Table describes how one content table maps onto a backup file.
type Table struct {
	ContentName string
	Root        string
	Element     string
	From        string
	Columns     []string
}

func (t Table) query() string {
	return "SELECT " + strings.Join(t.Columns, ", ") + " FROM " + t.From + " ORDER BY id"
}

// Exporter writes every row of its table as one XML element, checking for
// cancellation before each row.
type Exporter struct {
	table    Table
	db       Queryer
	guard    Guard
	progress task.Progress

	cancelled atomic.Bool
}

var _ task.Exporter = (*Exporter)(nil)

func New(table Table, db Queryer, guard Guard, progress task.Progress) *Exporter {
	return &Exporter{
		table:    table,
		db:       db,
		guard:    guard,
		progress: progress,
	}
}

func (e *Exporter) ContentName() string {
	return e.table.ContentName
}

func (e *Exporter) Cancel() {
	e.cancelled.Store(true)
}

func (e *Exporter) Cancelled() bool {
	return e.cancelled.Load()
}

func (e *Exporter) report(done, total int) {
	if e.progress != nil {
		e.progress.Report(done, total)
	}
}

// Export writes the table to path and returns the number of records written.
// When cancelled it stops at the next record and returns the partial count;
// the file is still well-formed. No file is kept when nothing was written.
// Records are written to path+PartialSuffix and renamed to path when done.
func (e *Exporter) Export(path string) (count int, err error) {
	if e.guard != nil {
		if err := e.guard.Check(filepath.Dir(path)); err != nil {
			return 0, err
		}
	}

	ctx := context.Background()
	var total int
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+e.table.From).Scan(&total); err != nil {
		return 0, errors.Wrapf(err, "failed to count %s", e.table.From)
	}
	e.report(0, total)
	if total == 0 || e.Cancelled() {
		return 0, nil
	}

	rows, err := e.db.QueryContext(ctx, e.table.query())
	if err != nil {
		return 0, errors.Wrapf(err, "failed to query %s", e.table.From)
	}
	defer rows.Close()

	// The file only appears under its backup name once it is complete.
	partial := path + PartialSuffix
	f, err := os.Create(partial)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create backup file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close backup file")
		}
		if err == nil && count > 0 {
			if rerr := os.Rename(partial, path); rerr != nil {
				err = errors.Wrap(rerr, "failed to finalize backup file")
			}
		}
		if err != nil {
			count = 0
		}
		if count == 0 {
			os.Remove(partial)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(xml.Header); err != nil {
		return 0, errors.Wrap(err, "failed to write backup file")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")

	root := xml.StartElement{Name: xml.Name{Local: e.table.Root}}
	if err := enc.EncodeToken(root); err != nil {
		return 0, errors.Wrap(err, "failed to write backup file")
	}

	values := make([]sql.NullString, len(e.table.Columns))
	dest := make([]interface{}, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if e.Cancelled() {
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return 0, errors.Wrapf(err, "failed to read %s", e.table.From)
		}

		el := xml.StartElement{Name: xml.Name{Local: e.table.Element}}
		for i, col := range e.table.Columns {
			if values[i].Valid {
				el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: col}, Value: values[i].String})
			}
		}
		if err := enc.EncodeToken(el); err != nil {
			return 0, errors.Wrap(err, "failed to write backup file")
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return 0, errors.Wrap(err, "failed to write backup file")
		}
		count++
		e.report(count, total)
	}
	if err := rows.Err(); err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", e.table.From)
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return 0, errors.Wrap(err, "failed to write backup file")
	}
	if err := enc.Flush(); err != nil {
		return 0, errors.Wrap(err, "failed to write backup file")
	}
	if err := w.Flush(); err != nil {
		return 0, errors.Wrap(err, "failed to write backup file")
	}
	return count, nil
}
