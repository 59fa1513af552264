package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

func TestFileCookieSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.txt")

	require.NoError(t, StoreCookie(path, "  __pus=abc; __puus=def  "))

	cookie, err := NewFileCookieSource(path).Cookie()
	require.NoError(t, err)
	assert.Equal(t, "__pus=abc; __puus=def", cookie, "cookie is stored and returned trimmed")
}

func TestFileCookieSource_Missing(t *testing.T) {
	src := NewFileCookieSource(filepath.Join(t.TempDir(), "cookie.txt"))

	_, err := src.Cookie()
	require.Error(t, err)
	assert.ErrorIs(t, err, quark.ErrLoginRequired)
}

func TestFileCookieSource_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.txt")
	require.NoError(t, StoreCookie(path, "   "))

	_, err := NewFileCookieSource(path).Cookie()
	assert.ErrorIs(t, err, quark.ErrLoginRequired)
}
