package quark

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
)

// folderPageSize is the default _size for owned-storage listings.
// Larger than the share page size; the two are independent tunables.
const folderPageSize = 100

// PublishListOptions is the listing configuration the publish walk
// uses: smaller pages, names sorted for stable sequence assignment.
func PublishListOptions() ListOptions {
	return ListOptions{PageSize: 50, Sort: "file_type:asc,file_name:asc"}
}

// ListOptions tunes an owned-storage listing.
type ListOptions struct {
	PageSize int    // 0 means folderPageSize
	Sort     string // server sort expression, empty for server default
}

type folderListEnvelope struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		List []wireEntry `json:"list"`
	} `json:"data"`
	Metadata pageMeta `json:"metadata"`
}

// ListFolder enumerates one directory level of owned storage, fetching
// pages in ascending order. pdirFid "0" is the storage root.
//
// Termination rule for owned-storage listings: stop once the pages
// fetched cover the advertised total (_page * _size >= _total). This
// differs from the share-listing rule on purpose — the storage endpoint
// reports an authoritative total on every page, so the coverage check
// is exact even when a page comes back short.
func (c *Client) ListFolder(ctx context.Context, pdirFid string, opts ListOptions) ([]Entry, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = folderPageSize
	}

	var entries []Entry

	for page := 1; ; page++ {
		q := c.commonQuery()
		q.Set("pdir_fid", pdirFid)
		q.Set("_page", strconv.Itoa(page))
		q.Set("_size", strconv.Itoa(pageSize))
		q.Set("_fetch_total", "1")
		q.Set("_fetch_sub_dirs", "1")
		q.Set("_sort", opts.Sort)

		raw, err := c.doJSON(ctx, http.MethodGet, c.driveBase, "/file/sort", q, nil)
		if err != nil {
			return nil, err
		}

		var env folderListEnvelope
		if err := decodeEnvelope(raw, "/file/sort", &env); err != nil {
			return nil, err
		}

		if env.Code != codeOK {
			return nil, apiError(env.Code, env.Message)
		}

		for i := range env.Data.List {
			entries = append(entries, env.Data.List[i].toEntry())
		}

		c.logger.Debug("fetched storage page",
			slog.String("pdir_fid", pdirFid),
			slog.Int("page", page),
			slog.Int("total", env.Metadata.Total),
		)

		if env.Metadata.Page*env.Metadata.Size >= env.Metadata.Total {
			return entries, nil
		}
	}
}
