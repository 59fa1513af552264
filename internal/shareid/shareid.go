// Package shareid parses share links and folder page addresses into
// the opaque identifiers the drive API expects.
package shareid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoURL is returned when free text contains no recognizable link.
var ErrNoURL = errors.New("shareid: no URL found")

// urlPattern matches the first http(s) or bare www link in free text.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+|www\.[^\s<>"]+`)

// ExtractURL returns the first URL embedded in free text, so pasted
// lines with surrounding prose still resolve.
func ExtractURL(text string) (string, error) {
	match := urlPattern.FindString(text)
	if match == "" {
		return "", ErrNoURL
	}

	return match, nil
}

// FromShareLink extracts the share slug ("pwd id") from a share link
// like https://pan.quark.cn/s/<slug>?x=y. Input that does not look like
// a share link is returned as-is: users sometimes paste the bare slug.
func FromShareLink(link string) string {
	link = strings.TrimSpace(link)

	if idx := strings.Index(link, "/s/"); idx >= 0 {
		link = link[idx+len("/s/"):]
		if q := strings.IndexByte(link, '?'); q >= 0 {
			link = link[:q]
		}
	}

	return link
}

// FromFolderPage extracts the folder fid from a web folder page
// address, whose last path segment is "<fid>-<display name>".
func FromFolderPage(link string) (string, error) {
	link = strings.TrimSpace(strings.TrimSuffix(link, "/"))

	idx := strings.LastIndexByte(link, '/')
	if idx < 0 || idx == len(link)-1 {
		return "", fmt.Errorf("shareid: %q is not a folder page address", link)
	}

	segment := link[idx+1:]
	if dash := strings.IndexByte(segment, '-'); dash >= 0 {
		segment = segment[:dash]
	}

	if segment == "" {
		return "", fmt.Errorf("shareid: %q has no folder id segment", link)
	}

	return segment, nil
}
