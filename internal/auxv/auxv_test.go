package auxv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	b := Encode([]Entry{
		{Tag: AT_PAGESZ, Val: 4096},
		{Tag: AT_ENTRY, Val: 0x10000},
		{Tag: AT_SYSINFO_EHDR, Val: 0x7fff0000},
	})
	require.Len(t, b, 4*16)

	a, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, AuxV{Entry: 0x10000, Vdso: 0x7fff0000, PageSize: 4096}, a)
}

func TestTruncated(t *testing.T) {
	b := Encode([]Entry{{Tag: AT_ENTRY, Val: 1}})
	entries, err := Decode(b[:20])
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, []Entry{{Tag: AT_ENTRY, Val: 1}}, entries)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrTruncated)
}
