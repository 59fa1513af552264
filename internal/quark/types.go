package quark

import "encoding/json"

// ChildCountUnknown indicates the immediate-children count was not
// present in the API response. File entries never carry one.
const ChildCountUnknown = -1

// Entry represents one file or directory returned by a listing.
// Fields are normalized from the wire format — callers never see raw
// API data.
type Entry struct {
	Fid        string
	Name       string
	IsDir      bool
	FileType   int
	ParentFid  string
	ChildCount int    // ChildCountUnknown for files
	ShareToken string // capability token; empty for owned-storage listings
	Status     int    // remote lifecycle flag
}

// wireEntry mirrors the listing JSON exactly. Unexported — callers use
// Entry via toEntry() normalization.
type wireEntry struct {
	Fid           string          `json:"fid"`
	FileName      string          `json:"file_name"`
	FileType      int             `json:"file_type"`
	Dir           bool            `json:"dir"`
	PdirFid       string          `json:"pdir_fid"`
	IncludeItems  json.RawMessage `json:"include_items"`
	ShareFidToken string          `json:"share_fid_token"`
	Status        int             `json:"status"`
}

// toEntry normalizes a wire entry. include_items is absent for files,
// so the child count defaults to ChildCountUnknown.
func (w *wireEntry) toEntry() Entry {
	e := Entry{
		Fid:        w.Fid,
		Name:       w.FileName,
		IsDir:      w.Dir,
		FileType:   w.FileType,
		ParentFid:  w.PdirFid,
		ChildCount: ChildCountUnknown,
		ShareToken: w.ShareFidToken,
		Status:     w.Status,
	}

	if w.Dir && len(w.IncludeItems) > 0 {
		var n int
		if err := json.Unmarshal(w.IncludeItems, &n); err == nil {
			e.ChildCount = n
		}
	}

	return e
}

// pageMeta is the pagination block every listing envelope carries.
type pageMeta struct {
	Total int `json:"_total"`
	Size  int `json:"_size"`
	Count int `json:"_count"`
	Page  int `json:"_page"`
}

// ShareRef is a resolved share root: the share slug plus the capability
// token obtained from the token exchange.
type ShareRef struct {
	PwdID  string
	Stoken string
}

// ShareListing is the result of enumerating one share directory:
// all entries across every page, in server return order.
type ShareListing struct {
	IsOwner bool
	Entries []Entry
}

// DownloadTarget is one row of a download-URL batch response.
type DownloadTarget struct {
	Fid      string
	FileName string
	URL      string
}

// TaskResult is the terminal payload of a polled remote task.
type TaskResult struct {
	TaskID  string
	SavedTo string // destination folder name chosen by the server
	ShareID string // set for share-creation tasks
}

// ShareOptions controls share-link creation.
type ShareOptions struct {
	URLType     int    // URLTypePublic or URLTypePasscode
	ExpiredType int    // one of the Expire* wire values
	Passcode    string // auto-generated when empty and URLType is passcode
}

// url_type wire values.
const (
	URLTypePublic   = 1
	URLTypePasscode = 2
)

// expired_type wire values.
const (
	ExpireForever = 1
	ExpireOneDay  = 2
	ExpireWeek    = 3
	ExpireMonth   = 4
)
