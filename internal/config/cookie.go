package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// FileCookieSource reads the session cookie from a file on every
// request, so a refreshed cookie takes effect without restarting.
// It implements quark.CredentialSource.
type FileCookieSource struct {
	path string
}

// NewFileCookieSource creates a cookie source reading from path.
func NewFileCookieSource(path string) *FileCookieSource {
	return &FileCookieSource{path: path}
}

// Cookie returns the stored cookie string. A missing or empty file
// means no session exists yet.
func (s *FileCookieSource) Cookie() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no cookie stored at %s: %w", s.path, quark.ErrLoginRequired)
		}

		return "", fmt.Errorf("reading cookie file: %w", err)
	}

	cookie := strings.TrimSpace(string(data))
	if cookie == "" {
		return "", fmt.Errorf("cookie file %s is empty: %w", s.path, quark.ErrLoginRequired)
	}

	return cookie, nil
}

// StoreCookie writes the cookie with owner-only permissions.
func StoreCookie(path, cookie string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(strings.TrimSpace(cookie)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing cookie file %s: %w", path, err)
	}

	return nil
}
