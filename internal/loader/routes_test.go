package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibtopo/internal/domain"
)

const sampleRoutes = `Unicast lids [0x0-0x3] of switch Lid 1 guid 0x0002c903004a3d40 (MF0;sw-01:IS5030/U1):
  Lid  Out   Destination
       Port     Info
0x0001 000 : (Switch portguid 0x0002c903004a3d40: 'MF0;sw-01:IS5030/U1')
0x0002 001 : (Channel Adapter portguid 0x0002c903000f1f7d: 'node01 HCA-1')
0x001a 012 : (Channel Adapter portguid 0x0002C903000F1F81: 'node02 HCA-1')
3 valid lids dumped
`

func TestParseRoutes(t *testing.T) {
	tables := domain.NewRouteTables()
	n, err := ParseRoutes(strings.NewReader(sampleRoutes), tables)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sw := "0002:c903:004a:3d40"
	r, ok := tables.Lookup(sw, "0002:c903:000f:1f7d")
	require.True(t, ok)
	assert.Equal(t, domain.Route{Port: 1, LID: 2, DestKind: domain.NodeKindHost}, r)

	r, ok = tables.Lookup(sw, "0002:C903:000F:1F81")
	require.True(t, ok, "ids keep the case of the dump")
	assert.Equal(t, 12, r.Port)
	assert.Equal(t, uint64(0x1a), r.LID)

	r, ok = tables.Lookup(sw, sw)
	require.True(t, ok)
	assert.Equal(t, domain.NodeKindSwitch, r.DestKind)
}

func TestParseRoutesMultipleHeaders(t *testing.T) {
	input := sampleRoutes + strings.ReplaceAll(sampleRoutes, "3d40", "3d41")
	tables := domain.NewRouteTables()
	n, err := ParseRoutes(strings.NewReader(input), tables)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Len(t, tables, 2)
}

func TestParseRoutesEntryBeforeHeader(t *testing.T) {
	input := "0x0002 001 : (Channel Adapter portguid 0x0002c903000f1f7d: 'node01 HCA-1')\n" + sampleRoutes
	tables := domain.NewRouteTables()
	n, err := ParseRoutes(strings.NewReader(input), tables)
	assert.True(t, errors.Is(err, ErrMalformedRouteFile))
	assert.Equal(t, 0, n)
	assert.Empty(t, tables)
}

func TestLoadRouteDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("ibroute-0002:c903:004a:3d40-1.txt", sampleRoutes)
	write("ibroute-0002:c903:004a:3d41-1.txt", "0x0002 001 : (Switch portguid 0x0002c903004a3d40: 'x')\n")
	write("notes.txt", "0x0002 001 : (Switch portguid 0x0002c903004a3d40: 'x')\n")

	tables := domain.NewRouteTables()
	stats, err := LoadRouteDir(dir, tables, discard)
	require.NoError(t, err)
	assert.Equal(t, RouteStats{Files: 2, Entries: 3, Malformed: 1}, stats)
	assert.Equal(t, 3, tables.EntryCount())
}

func TestLoadRouteDirMissing(t *testing.T) {
	_, err := LoadRouteDir(filepath.Join(t.TempDir(), "nope"), domain.NewRouteTables(), discard)
	assert.True(t, errors.Is(err, ErrFatalInput))
}

func TestIsRouteFile(t *testing.T) {
	assert.True(t, IsRouteFile("ibroute-0002:c903:004a:3d40-1.txt"))
	assert.True(t, IsRouteFile("ibroute-0002:c903:004a:3d40-.txt"))
	assert.False(t, IsRouteFile("ibroute-0002:c903:004a:3d40-1.txt.bak"))
	assert.False(t, IsRouteFile("ibroute-0002c903004a3d40-1.txt"))
}
