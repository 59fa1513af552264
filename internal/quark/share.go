package quark

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// sharePageSize is the _size value for share-detail listings. Tuned
// independently of the owned-storage page size.
const sharePageSize = 50

// shareDetailSort keeps directories first, newest files first — the
// order the web client requests, preserved so save tasks reference
// entries in a stable order.
const shareDetailSort = "file_type:asc,updated_at:desc"

// Share-family endpoints signal success with status==200; the
// code-family endpoints use code==0. Callers must check the field the
// endpoint family uses.
const statusOK = 200

type shareTokenEnvelope struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Stoken string `json:"stoken"`
	} `json:"data"`
}

type shareDetailEnvelope struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		IsOwner int         `json:"is_owner"`
		List    []wireEntry `json:"list"`
	} `json:"data"`
	Metadata pageMeta `json:"metadata"`
}

// ResolveShare exchanges a share slug and optional passcode for a
// capability token. An empty token from the server means the passcode
// is wrong or the share is gone; this maps to ErrShareAccessDenied.
func (c *Client) ResolveShare(ctx context.Context, pwdID, passcode string) (ShareRef, error) {
	c.logger.Info("resolving share", slog.String("pwd_id", pwdID))

	body := map[string]string{"pwd_id": pwdID, "passcode": passcode}

	raw, err := c.doJSON(ctx, http.MethodPost, c.driveBase, "/share/sharepage/token", c.commonQuery(), body)
	if err != nil {
		return ShareRef{}, err
	}

	var env shareTokenEnvelope
	if err := decodeEnvelope(raw, "/share/sharepage/token", &env); err != nil {
		return ShareRef{}, err
	}

	if env.Status != statusOK || env.Data.Stoken == "" {
		return ShareRef{}, fmt.Errorf("%s: %w", env.Message, ErrShareAccessDenied)
	}

	return ShareRef{PwdID: pwdID, Stoken: env.Data.Stoken}, nil
}

// ListShareDir enumerates one directory level of a share, fetching
// pages in ascending order and accumulating entries in server return
// order. pdirFid "0" is the share root.
//
// Termination rule for share listings: stop when the first page covers
// the advertised total (_total <= _size) or the server returns a short
// page (_count < _size). This is the rule the share endpoint family
// uses; owned-storage listings terminate differently (see ListFolder).
func (c *Client) ListShareDir(ctx context.Context, ref ShareRef, pdirFid string) (*ShareListing, error) {
	listing := &ShareListing{}

	for page := 1; ; page++ {
		q := c.commonQuery()
		q.Set("pwd_id", ref.PwdID)
		q.Set("stoken", ref.Stoken)
		q.Set("pdir_fid", pdirFid)
		q.Set("force", "0")
		q.Set("_page", strconv.Itoa(page))
		q.Set("_size", strconv.Itoa(sharePageSize))
		q.Set("_sort", shareDetailSort)

		raw, err := c.doJSON(ctx, http.MethodGet, c.driveBase, "/share/sharepage/detail", q, nil)
		if err != nil {
			return nil, err
		}

		var env shareDetailEnvelope
		if err := decodeEnvelope(raw, "/share/sharepage/detail", &env); err != nil {
			return nil, err
		}

		if env.Status != statusOK {
			return nil, apiError(env.Code, env.Message)
		}

		listing.IsOwner = env.Data.IsOwner == 1

		if env.Metadata.Total < 1 {
			return listing, nil
		}

		// A page contributing no entries can never make progress toward
		// the advertised total; a malformed _size=0 response would
		// otherwise dodge both termination clauses below and loop
		// forever.
		if len(env.Data.List) == 0 {
			return listing, nil
		}

		for i := range env.Data.List {
			listing.Entries = append(listing.Entries, env.Data.List[i].toEntry())
		}

		c.logger.Debug("fetched share page",
			slog.String("pdir_fid", pdirFid),
			slog.Int("page", page),
			slog.Int("count", env.Metadata.Count),
			slog.Int("total", env.Metadata.Total),
		)

		if env.Metadata.Total <= env.Metadata.Size || env.Metadata.Count < env.Metadata.Size {
			return listing, nil
		}
	}
}
