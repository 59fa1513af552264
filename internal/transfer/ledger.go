package transfer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Ledger file names under the ledger directory. The row format is
// ` | `-separated text so a run can be inspected and hand-edited.
const (
	resultsFile      = "share_url.txt"
	resultsBackup    = "share_url_backup.txt"
	retryFile        = "retry.txt"
	retryResultsFile = "retry_share_url.txt"

	rowSeparator = " | "
)

// RetryRow is one parsed failure-ledger line: enough to replay the
// publish of a single folder without re-enumerating the tree.
type RetryRow struct {
	Sequence   int
	ParentName string
	FolderName string
	Fid        string
}

// LedgerSet manages the publish run ledgers in one directory.
// Single-writer: concurrent runs against the same directory are
// unsupported and must be serialized by the caller.
type LedgerSet struct {
	dir string
}

// NewLedgerSet creates a LedgerSet rooted at dir.
func NewLedgerSet(dir string) *LedgerSet {
	return &LedgerSet{dir: dir}
}

// RetryPath returns the failure-ledger path.
func (s *LedgerSet) RetryPath() string {
	return filepath.Join(s.dir, retryFile)
}

// ResultsPath returns the success-ledger path.
func (s *LedgerSet) ResultsPath() string {
	return filepath.Join(s.dir, resultsFile)
}

// OpenResults prepares the success ledger for a fresh run: the previous
// run's rows are copied to the backup file, then the ledger is
// truncated. Records are appended (and synced) as the run progresses so
// a crash loses no completed work.
func (s *LedgerSet) OpenResults() (*Ledger, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	path := s.ResultsPath()

	if err := copyFile(path, filepath.Join(s.dir, resultsBackup)); err != nil {
		return nil, fmt.Errorf("backing up results ledger: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening results ledger: %w", err)
	}

	return &Ledger{f: f}, nil
}

// OpenRetryResults opens the retry-run success ledger in append mode.
func (s *LedgerSet) OpenRetryResults() (*Ledger, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, retryResultsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening retry results ledger: %w", err)
	}

	return &Ledger{f: f}, nil
}

// AppendRetry appends one failed item to the failure ledger.
// Open-write-close per row: the ledger survives a crash at any point.
func (s *LedgerSet) AppendRetry(rec ShareRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.OpenFile(s.RetryPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening retry ledger: %w", err)
	}
	defer f.Close()

	row := strings.Join([]string{
		strconv.Itoa(rec.Sequence), sanitizeField(rec.ParentName), sanitizeField(rec.FolderName), rec.Fid,
	}, rowSeparator)

	if _, err := fmt.Fprintln(f, row); err != nil {
		return fmt.Errorf("appending retry row: %w", err)
	}

	return f.Sync()
}

// ReadRetryRows parses the failure ledger. Malformed lines are skipped:
// the file is hand-editable and a stray line must not block a retry run.
func (s *LedgerSet) ReadRetryRows() ([]RetryRow, error) {
	f, err := os.Open(s.RetryPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("opening retry ledger: %w", err)
	}
	defer f.Close()

	var rows []RetryRow

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), rowSeparator)
		if len(parts) != 4 {
			continue
		}

		seq, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}

		rows = append(rows, RetryRow{
			Sequence:   seq,
			ParentName: parts[1],
			FolderName: parts[2],
			Fid:        strings.TrimSpace(parts[3]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading retry ledger: %w", err)
	}

	return rows, nil
}

// WriteRetryRows rewrites the failure ledger with only the rows still
// pending retry.
func (s *LedgerSet) WriteRetryRows(rows []RetryRow) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.Create(s.RetryPath())
	if err != nil {
		return fmt.Errorf("rewriting retry ledger: %w", err)
	}
	defer f.Close()

	for _, row := range rows {
		line := strings.Join([]string{
			strconv.Itoa(row.Sequence), sanitizeField(row.ParentName), sanitizeField(row.FolderName), row.Fid,
		}, rowSeparator)

		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("writing retry row: %w", err)
		}
	}

	return f.Sync()
}

// Ledger is an append-only success record file.
type Ledger struct {
	f *os.File
}

// Append writes one completed record and syncs it to disk.
func (l *Ledger) Append(rec ShareRecord) error {
	row := strings.Join([]string{
		strconv.Itoa(rec.Sequence), sanitizeField(rec.ParentName), sanitizeField(rec.FolderName), rec.ShareURL,
	}, rowSeparator)

	if _, err := fmt.Fprintln(l.f, row); err != nil {
		return fmt.Errorf("appending result row: %w", err)
	}

	return l.f.Sync()
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	return l.f.Close()
}

// sanitizeField collapses the column separator out of free-text name
// fields so a folder named with a literal " | " cannot shift columns
// and make ReadRetryRows drop the row. Ids and URLs never contain it.
func sanitizeField(s string) string {
	for strings.Contains(s, rowSeparator) {
		s = strings.ReplaceAll(s, rowSeparator, " ")
	}

	return s
}

// copyFile copies src to dst. A missing src is not an error (first run).
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)

	return err
}
