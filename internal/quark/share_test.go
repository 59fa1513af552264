package quark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShare_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/share/sharepage/token", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc123", body["pwd_id"])
		assert.Equal(t, "9yxz", body["passcode"])

		_, _ = w.Write([]byte(`{"status":200,"message":"ok","data":{"stoken":"tok-1"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	ref, err := client.ResolveShare(context.Background(), "abc123", "9yxz")
	require.NoError(t, err)
	assert.Equal(t, ShareRef{PwdID: "abc123", Stoken: "tok-1"}, ref)
}

func TestResolveShare_EmptyTokenDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":400,"message":"need passcode","data":null}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ResolveShare(context.Background(), "abc123", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShareAccessDenied)
}

// shareDetailPage renders one page of a share-detail listing.
func shareDetailPage(total, size, count int, entries []string, isOwner int) string {
	return fmt.Sprintf(
		`{"status":200,"message":"ok","data":{"is_owner":%d,"list":[%s]},"metadata":{"_total":%d,"_size":%d,"_count":%d}}`,
		isOwner, joinEntries(entries), total, size, count)
}

func joinEntries(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}

	return out
}

func fileEntryJSON(fid, name string) string {
	return fmt.Sprintf(
		`{"fid":%q,"file_name":%q,"file_type":1,"dir":false,"pdir_fid":"0","share_fid_token":"tok-%s","status":1}`,
		fid, name, fid)
}

func dirEntryJSON(fid, name string, children int) string {
	return fmt.Sprintf(
		`{"fid":%q,"file_name":%q,"file_type":0,"dir":true,"pdir_fid":"0","include_items":%d,"share_fid_token":"tok-%s","status":1}`,
		fid, name, children, fid)
}

func TestListShareDir_TwoPagesReturnsTotal(t *testing.T) {
	// 75 entries, page size 50: two pages, each fid exactly once.
	const total = 75

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("_page"))

		var entries []string

		start := (page - 1) * sharePageSize
		end := min(start+sharePageSize, total)
		for i := start; i < end; i++ {
			entries = append(entries, fileEntryJSON(fmt.Sprintf("fid-%03d", i), fmt.Sprintf("f%03d.mp4", i)))
		}

		_, _ = w.Write([]byte(shareDetailPage(total, sharePageSize, len(entries), entries, 0)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	listing, err := client.ListShareDir(context.Background(), ShareRef{PwdID: "p", Stoken: "s"}, "0")
	require.NoError(t, err)
	require.Len(t, listing.Entries, total)
	assert.False(t, listing.IsOwner)

	seen := make(map[string]bool, total)
	for _, e := range listing.Entries {
		assert.False(t, seen[e.Fid], "fid %s returned twice", e.Fid)
		seen[e.Fid] = true
	}
}

func TestListShareDir_ShortPageTerminates(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++

		// Server advertises more than one page but returns a short page:
		// the short-page rule must stop enumeration.
		entries := []string{fileEntryJSON("fid-1", "a.bin"), fileEntryJSON("fid-2", "b.bin")}
		_, _ = w.Write([]byte(shareDetailPage(120, sharePageSize, len(entries), entries, 0)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	listing, err := client.ListShareDir(context.Background(), ShareRef{PwdID: "p", Stoken: "s"}, "0")
	require.NoError(t, err)
	assert.Len(t, listing.Entries, 2)
	assert.Equal(t, 1, calls)
}

func TestListShareDir_EmptyListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(shareDetailPage(0, sharePageSize, 0, nil, 1)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	listing, err := client.ListShareDir(context.Background(), ShareRef{PwdID: "p", Stoken: "s"}, "0")
	require.NoError(t, err)
	assert.Empty(t, listing.Entries)
	assert.True(t, listing.IsOwner)
}

func TestListShareDir_ZeroSizePageTerminates(t *testing.T) {
	// A malformed response advertising a total but carrying _size=0 and
	// no entries satisfies neither termination clause; the listing must
	// still return instead of paging forever.
	var pages int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pages++
		_, _ = w.Write([]byte(shareDetailPage(5, 0, 0, nil, 1)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	listing, err := client.ListShareDir(context.Background(), ShareRef{PwdID: "p", Stoken: "s"}, "0")
	require.NoError(t, err)
	assert.Empty(t, listing.Entries)
	assert.Equal(t, 1, pages)
}

func TestListShareDir_EntryNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entries := []string{
			dirEntryJSON("d1", "season1", 12),
			fileEntryJSON("f1", "readme.txt"),
		}
		_, _ = w.Write([]byte(shareDetailPage(2, sharePageSize, 2, entries, 0)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	listing, err := client.ListShareDir(context.Background(), ShareRef{PwdID: "p", Stoken: "s"}, "0")
	require.NoError(t, err)
	require.Len(t, listing.Entries, 2)

	dir := listing.Entries[0]
	assert.True(t, dir.IsDir)
	assert.Equal(t, 12, dir.ChildCount)
	assert.Equal(t, "tok-d1", dir.ShareToken)

	file := listing.Entries[1]
	assert.False(t, file.IsDir)
	assert.Equal(t, ChildCountUnknown, file.ChildCount)
}
