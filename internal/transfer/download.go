package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// defaultDownloadWorkers bounds parallel file fetches. Enumeration
// stays sequential; only the file bodies fan out.
const defaultDownloadWorkers = 4

// DownloadAPI is the slice of the drive client the download
// orchestration needs.
type DownloadAPI interface {
	ResolveShare(ctx context.Context, pwdID, passcode string) (quark.ShareRef, error)
	ListShareDir(ctx context.Context, ref quark.ShareRef, pdirFid string) (*quark.ShareListing, error)
	ResolveDownloads(ctx context.Context, fids []string) ([]quark.DownloadTarget, error)
	FetchFile(ctx context.Context, downloadURL string, w io.Writer) (written, advertised int64, err error)
}

// ProgressFunc receives per-byte progress for one file. total is -1
// until the advertised length is known.
type ProgressFunc func(name string, written, total int64)

// FileFailure records one file that could not be downloaded.
type FileFailure struct {
	Path string
	Err  error
}

// DownloadReport summarizes one download run. Failures are item-scoped:
// a bad file never aborts the batch.
type DownloadReport struct {
	Files    int
	Bytes    int64
	Failures []FileFailure
}

// Downloader mirrors a share subtree onto the local filesystem.
type Downloader struct {
	api      DownloadAPI
	enum     *Enumerator
	workers  int
	progress ProgressFunc
	logger   *slog.Logger
}

// NewDownloader creates a Downloader. workers <= 0 selects the default
// pool size; progress may be nil.
func NewDownloader(api DownloadAPI, workers int, progress ProgressFunc, logger *slog.Logger) *Downloader {
	if workers <= 0 {
		workers = defaultDownloadWorkers
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Downloader{
		api:      api,
		enum:     NewEnumerator(api, logger),
		workers:  workers,
		progress: progress,
		logger:   logger,
	}
}

// fileRef is one file discovered during subtree expansion, with the
// directory path it belongs under relative to the share root.
type fileRef struct {
	fid    string
	name   string
	relDir string
}

// DownloadToLocal enumerates the whole share subtree and streams every
// file to destDir, mirroring the remote folder nesting. The caller must
// own the share content — the service only serves download URLs for
// owned items.
//
// Each directory's listing is exhausted across all of its pages before
// the branch is considered expanded, so directories appearing on a
// later page are never silently skipped.
func (d *Downloader) DownloadToLocal(ctx context.Context, shareSlug, passcode, destDir string) (*DownloadReport, error) {
	ref, err := d.api.ResolveShare(ctx, shareSlug, passcode)
	if err != nil {
		return nil, err
	}

	tree, err := d.enum.EnumerateShare(ctx, ref, "0", Recursive)
	if err != nil {
		return nil, fmt.Errorf("enumerating share: %w", err)
	}

	if !tree.IsOwner {
		return nil, ErrNotOwned
	}

	files := collectFiles(tree)

	report := &DownloadReport{}

	if len(files) == 0 {
		d.logger.Info("share subtree has no files", slog.String("pwd_id", shareSlug))
		return report, nil
	}

	fids := make([]string, 0, len(files))
	refByFid := make(map[string]fileRef, len(files))

	for _, f := range files {
		fids = append(fids, f.fid)
		refByFid[f.fid] = f
	}

	targets, err := d.api.ResolveDownloads(ctx, fids)
	if err != nil {
		return nil, fmt.Errorf("resolving download urls: %w", err)
	}

	d.logger.Info("starting downloads",
		slog.Int("files", len(targets)),
		slog.Int("workers", d.workers),
		slog.String("dest", destDir),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	var mu gosync.Mutex

	for _, target := range targets {
		g.Go(func() error {
			path, written, err := d.fetchOne(gctx, target, refByFid, destDir)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// Cancellation aborts the pool; everything else is
				// scoped to the file.
				if gctx.Err() != nil {
					return err
				}

				report.Failures = append(report.Failures, FileFailure{Path: path, Err: err})
				d.logger.Warn("file download failed",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)

				return nil
			}

			report.Files++
			report.Bytes += written

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	return report, nil
}

// collectFiles filters an enumerated tree down to its files, mapping
// each entry's remote directory path to a filesystem-safe relative
// directory.
func collectFiles(tree *TreeListing) []fileRef {
	var files []fileRef

	for _, placed := range tree.Entries {
		if placed.Entry.IsDir {
			continue
		}

		files = append(files, fileRef{
			fid:    placed.Entry.Fid,
			name:   placed.Entry.Name,
			relDir: localDir(placed.Path),
		})
	}

	return files
}

// localDir converts remote directory names into one relative path,
// sanitizing each segment independently.
func localDir(path []string) string {
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, len(path))
	for i, name := range path {
		parts[i] = localName(name)
	}

	return filepath.Join(parts...)
}

// fetchOne streams a single file to disk and verifies the byte count
// against the advertised length.
func (d *Downloader) fetchOne(ctx context.Context, target quark.DownloadTarget, refByFid map[string]fileRef, destDir string) (string, int64, error) {
	relDir := ""
	if fr, ok := refByFid[target.Fid]; ok {
		relDir = fr.relDir
	}

	dir := filepath.Join(destDir, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, 0, fmt.Errorf("creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, localName(target.FileName))

	f, err := os.Create(path)
	if err != nil {
		return path, 0, fmt.Errorf("creating %s: %w", path, err)
	}

	pw := &progressWriter{w: f, name: target.FileName, total: -1, fn: d.progress}

	written, advertised, fetchErr := d.api.FetchFile(ctx, target.URL, pw)

	if closeErr := f.Close(); closeErr != nil && fetchErr == nil {
		fetchErr = closeErr
	}

	if fetchErr != nil {
		return path, written, fetchErr
	}

	if advertised >= 0 && written != advertised {
		return path, written, fmt.Errorf("%s: wrote %d of %d bytes: %w",
			target.FileName, written, advertised, ErrPartialDownload)
	}

	d.logger.Debug("file downloaded",
		slog.String("path", path),
		slog.Int64("bytes", written),
	)

	return path, written, nil
}

// localName makes a remote file name safe for the local filesystem:
// NFC-normalized, path separators replaced.
func localName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")

	if name == "" || name == "." || name == ".." {
		return "_"
	}

	return name
}

// progressWriter counts written bytes and reports them through fn.
// quark.FetchFile calls SetTotal with the advertised length before the
// first Write.
type progressWriter struct {
	w       io.Writer
	name    string
	total   int64
	written int64
	fn      ProgressFunc
}

func (pw *progressWriter) SetTotal(total int64) {
	pw.total = total
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)

	if pw.fn != nil {
		pw.fn(pw.name, pw.written, pw.total)
	}

	return n, err
}
