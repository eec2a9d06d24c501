package loader_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibtopo/internal/loader"
	"ibtopo/internal/loader/loadertest"
)

func TestFindSubnets(t *testing.T) {
	dir := t.TempDir()
	log := slog.New(slog.DiscardHandler)

	withRoutes := loadertest.Star("fe80:0000:0000:0001", 0x0002c903004a3d40,
		loadertest.Host{GUID: 0x0002c903000f1f7d, LID: 2, Name: "node01", SwitchPort: 1})
	withRoutes.Write(t, dir)

	noRoutes := loadertest.Star("fe80:0000:0000:0000", 0x0002c903004b3d40)
	noRoutes.Routes = nil
	noRoutes.Write(t, dir)

	fileRoutes := loadertest.Star("fe80:0000:0000:0002", 0x0002c903004c3d40)
	fileRoutes.Routes = nil
	fileRoutes.Write(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ibroutes-fe80:0000:0000:0002"), nil, 0644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ib-subnet-bad.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), nil, 0644))

	subnets, err := loader.FindSubnets(dir, log)
	require.NoError(t, err)
	require.Len(t, subnets, 3)

	assert.Equal(t, "fe80:0000:0000:0000", subnets[0].Subnet)
	assert.Empty(t, subnets[0].RouteDir)

	assert.Equal(t, "fe80:0000:0000:0001", subnets[1].Subnet)
	assert.Equal(t, filepath.Join(dir, "ibroutes-fe80:0000:0000:0001"), subnets[1].RouteDir)
	assert.Equal(t, filepath.Join(dir, "ib-subnet-fe80:0000:0000:0001.txt"), subnets[1].DiscoveryPath)

	assert.Equal(t, "fe80:0000:0000:0002", subnets[2].Subnet)
	assert.Empty(t, subnets[2].RouteDir, "a plain file is not a route directory")
}

func TestFindSubnetsMissingDir(t *testing.T) {
	_, err := loader.FindSubnets(filepath.Join(t.TempDir(), "missing"), slog.New(slog.DiscardHandler))
	assert.True(t, errors.Is(err, loader.ErrFatalInput))
}

func TestSubnetFromFileName(t *testing.T) {
	subnet, ok := loader.SubnetFromFileName("ib-subnet-FE80:0000:0000:0000.txt")
	assert.True(t, ok)
	assert.Equal(t, "FE80:0000:0000:0000", subnet)

	_, ok = loader.SubnetFromFileName("ib-subnet-fe80:0000:0000:0000.txt.orig")
	assert.False(t, ok)
	assert.True(t, loader.IsInputFile("ib-subnet-fe80:0000:0000:0000.txt"))
	assert.False(t, loader.IsInputFile("README"))
}
