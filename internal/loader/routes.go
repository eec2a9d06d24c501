package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"ibtopo/internal/domain"
)

// ErrMalformedRouteFile is returned when a route line precedes any header
var ErrMalformedRouteFile = errors.New("malformed route file")

var (
	routeFileName = regexp.MustCompile(`^ibroute-[0-9a-fA-F:]{19}-([0-9]*)\.txt$`)

	routeHeaderLine = regexp.MustCompile(`^Unicast lids.*guid\s+0x([0-9a-fA-F]{16}).*:`)

	routeEntryLine = regexp.MustCompile(`^` +
		`0x([0-9a-fA-F]+)\s+` + // dest lid
		`(\d+)\s+` + // egress port
		`:\s+\(` +
		`(Channel Adapter|Switch)\s+` +
		`portguid 0x([0-9a-fA-F]{16}):`)
)

// IsRouteFile reports whether name is a per-switch route dump
func IsRouteFile(name string) bool {
	return routeFileName.MatchString(name)
}

// ParseRoutes reads one route dump into tables and returns the number of
// entries added. Each header line selects the switch that following entries
// belong to. An entry before any header aborts the file with
// ErrMalformedRouteFile; entries read up to that point are kept.
func ParseRoutes(r io.Reader, tables domain.RouteTables) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var switchID string
	entries := 0
	for scanner.Scan() {
		line := scanner.Text()

		if m := routeHeaderLine.FindStringSubmatch(line); m != nil {
			id, err := domain.CanonicalID(m[1])
			if err != nil {
				return entries, err
			}
			switchID = id
			continue
		}

		m := routeEntryLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if switchID == "" {
			return entries, ErrMalformedRouteFile
		}

		lid, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			return entries, fmt.Errorf("%w: lid %q", ErrMalformedRouteFile, m[1])
		}
		port, err := strconv.Atoi(m[2])
		if err != nil {
			return entries, fmt.Errorf("%w: port %q", ErrMalformedRouteFile, m[2])
		}
		destID, err := domain.CanonicalID(m[4])
		if err != nil {
			return entries, err
		}

		kind := domain.NodeKindHost
		if m[3] == "Switch" {
			kind = domain.NodeKindSwitch
		}

		tables.Set(switchID, destID, domain.Route{Port: port, LID: lid, DestKind: kind})
		entries++
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read routes: %w", err)
	}

	return entries, nil
}

// RouteStats summarises the loading of a route directory
type RouteStats struct {
	Files     int
	Entries   int
	Malformed int
}

// LoadRouteDir reads every route dump in dir into tables. A malformed file
// is logged and loading continues with the next one. Failing to list the
// directory or open a dump is fatal.
func LoadRouteDir(dir string, tables domain.RouteTables, log *slog.Logger) (RouteStats, error) {
	var stats RouteStats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, fmt.Errorf("%w: read route directory: %v", ErrFatalInput, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsRouteFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		n, err := readRouteFile(path, tables)
		stats.Entries += n
		stats.Files++
		if err == nil {
			continue
		}
		if errors.Is(err, ErrFatalInput) {
			return stats, err
		}
		stats.Malformed++
		log.Warn("malformed route file", "file", path, "error", err)
	}

	return stats, nil
}

func readRouteFile(path string, tables domain.RouteTables) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: open route file: %v", ErrFatalInput, err)
	}
	defer f.Close()
	return ParseRoutes(f, tables)
}
