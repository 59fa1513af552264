package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

func TestShareOptions_Expiry(t *testing.T) {
	tests := []struct {
		expiry string
		want   int
	}{
		{"1d", quark.ExpireOneDay},
		{"7d", quark.ExpireWeek},
		{"30d", quark.ExpireMonth},
		{"forever", quark.ExpireForever},
	}

	for _, tt := range tests {
		opts, err := shareOptions(tt.expiry, false, "")
		require.NoError(t, err)
		assert.Equal(t, tt.want, opts.ExpiredType)
		assert.Equal(t, quark.URLTypePublic, opts.URLType)
	}
}

func TestShareOptions_Invalid(t *testing.T) {
	_, err := shareOptions("2w", false, "")
	assert.Error(t, err)
}

func TestShareOptions_Passcode(t *testing.T) {
	opts, err := shareOptions("forever", true, "")
	require.NoError(t, err)
	assert.Equal(t, quark.URLTypePasscode, opts.URLType)
	assert.Empty(t, opts.Passcode, "empty passcode means random per link")

	opts, err = shareOptions("forever", false, "abcd")
	require.NoError(t, err)
	assert.Equal(t, quark.URLTypePasscode, opts.URLType, "a fixed passcode implies encryption")
	assert.Equal(t, "abcd", opts.Passcode)
}

func TestResolveRootFolder(t *testing.T) {
	fid, err := resolveRootFolder("https://pan.quark.cn/list#/list/all/fid123-My%20Folder")
	require.NoError(t, err)
	assert.Equal(t, "fid123", fid)

	fid, err = resolveRootFolder("barefid456")
	require.NoError(t, err)
	assert.Equal(t, "barefid456", fid)
}
