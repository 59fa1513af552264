package quark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type downloadEnvelope struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    []struct {
		Fid         string `json:"fid"`
		FileName    string `json:"file_name"`
		DownloadURL string `json:"download_url"`
	} `json:"data"`
}

// ResolveDownloads exchanges a batch of file ids for direct download
// URLs. The whole accumulated fid list goes in one request, matching
// the batch size the service accepts.
func (c *Client) ResolveDownloads(ctx context.Context, fids []string) ([]DownloadTarget, error) {
	body := map[string]any{"fids": fids}

	raw, err := c.doJSON(ctx, http.MethodPost, c.driveBase, "/file/download", c.commonQuery(), body)
	if err != nil {
		return nil, err
	}

	var env downloadEnvelope
	if err := decodeEnvelope(raw, "/file/download", &env); err != nil {
		return nil, err
	}

	if env.Status != statusOK {
		return nil, apiError(env.Code, env.Message)
	}

	targets := make([]DownloadTarget, 0, len(env.Data))
	for _, d := range env.Data {
		targets = append(targets, DownloadTarget{Fid: d.Fid, FileName: d.FileName, URL: d.DownloadURL})
	}

	c.logger.Info("resolved download batch",
		slog.Int("requested", len(fids)),
		slog.Int("resolved", len(targets)),
	)

	return targets, nil
}

// FetchFile streams one file's bytes from its resolved URL to w.
// The identity headers are required — the URLs are cookie-gated, not
// pre-authenticated. Returns bytes written and the advertised content
// length; the caller decides whether a mismatch fails the file.
func (c *Client) FetchFile(ctx context.Context, downloadURL string, w io.Writer) (written, advertised int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("quark: creating download request: %w", err)
	}

	if err := c.setIdentityHeaders(req); err != nil {
		return 0, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("quark: download request: %v: %w", err, ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, 0, fmt.Errorf("quark: download HTTP %d: %w", resp.StatusCode, ErrTransport)
	}

	advertised = resp.ContentLength

	// Writers that want the advertised length for progress display can
	// implement SetTotal; it fires before the first byte is written.
	if ts, ok := w.(interface{ SetTotal(int64) }); ok {
		ts.SetTotal(advertised)
	}

	written, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		return written, advertised, fmt.Errorf("quark: streaming download: %v: %w", copyErr, ErrTransport)
	}

	return written, advertised, nil
}
