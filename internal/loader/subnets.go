package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

var subnetFileName = regexp.MustCompile(`^ib-subnet-([0-9a-fA-F:]{19})\.txt$`)

// SubnetInput locates the input files of one subnet
type SubnetInput struct {
	Subnet        string
	DiscoveryPath string
	// RouteDir is empty when the subnet has no route directory
	RouteDir string
}

// SubnetFromFileName returns the subnet id encoded in a discovery file name
func SubnetFromFileName(name string) (string, bool) {
	m := subnetFileName.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RouteDirName returns the route directory name for subnet
func RouteDirName(subnet string) string {
	return "ibroutes-" + subnet
}

// FindSubnets lists the subnets of inputDir in file name order. A subnet
// without a route directory is returned with an empty RouteDir.
func FindSubnets(inputDir string, log *slog.Logger) ([]SubnetInput, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read input directory: %v", ErrFatalInput, err)
	}

	var subnets []SubnetInput
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		subnet, ok := SubnetFromFileName(entry.Name())
		if !ok {
			continue
		}

		in := SubnetInput{
			Subnet:        subnet,
			DiscoveryPath: filepath.Join(inputDir, entry.Name()),
		}

		routeDir := filepath.Join(inputDir, RouteDirName(subnet))
		info, err := os.Stat(routeDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Info("no route directory found for subnet", "subnet", subnet)
		case err != nil:
			return nil, fmt.Errorf("%w: stat %s: %v", ErrFatalInput, routeDir, err)
		case !info.IsDir():
			log.Info("no route directory found for subnet", "subnet", subnet, "path", routeDir)
		default:
			in.RouteDir = routeDir
		}

		subnets = append(subnets, in)
	}

	return subnets, nil
}

// IsInputFile reports whether a file name belongs to the dump layout,
// either a discovery file or a route dump.
func IsInputFile(name string) bool {
	return subnetFileName.MatchString(name) || IsRouteFile(name)
}
