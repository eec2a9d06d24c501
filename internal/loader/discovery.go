package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"ibtopo/internal/domain"
)

// ErrFatalInput marks input errors that abort the whole run
var ErrFatalInput = errors.New("fatal input error")

// ErrUnrecognizedLine is returned by ParseDiscoveryLine for lines matching
// no known shape
var ErrUnrecognizedLine = errors.New("line not recognized")

// LineKind classifies a discovery line
type LineKind int

const (
	LineIgnored  LineKind = iota // directed-route marker or blank
	LineActive                   // port with a peer
	LineInactive                 // port without a peer
)

var (
	directedRouteLine = regexp.MustCompile(`^DR`)

	activePortLine = regexp.MustCompile(`^` +
		`(CA|SW)\s+` + // source kind
		`(\d+)\s+` + // source lid
		`(\d+)\s+` + // source port
		`0x([0-9a-fA-F]{16})\s+` + // source guid
		`(\d+x)\s` + // width
		`(\S*)\s+` + // speed
		`-\s+` +
		`(CA|SW)\s+` + // dest kind
		`(\d+)\s+` + // dest lid
		`(\d+)\s+` + // dest port
		`0x([0-9a-fA-F]{16})\s+` + // dest guid
		`\(\s*(.*)\s*\)`) // description

	inactivePortLine = regexp.MustCompile(`^` +
		`(CA|SW)\s+` +
		`(\d+)\s+` +
		`(\d+)\s+` +
		`0x([0-9a-fA-F]{16})\s+`)

	descriptionSplit = regexp.MustCompile(`(.*)\s+-\s+(.*)`)
)

// DiscoveryLine is one parsed line of a discovery dump
type DiscoveryLine struct {
	Kind     LineKind
	Record   domain.PortRecord   // set for LineActive
	Inactive domain.PortEndpoint // set for LineInactive
}

// ParseDiscoveryLine parses a single discovery line
func ParseDiscoveryLine(line string) (DiscoveryLine, error) {
	if strings.TrimSpace(line) == "" || directedRouteLine.MatchString(line) {
		return DiscoveryLine{Kind: LineIgnored}, nil
	}

	if m := activePortLine.FindStringSubmatch(line); m != nil {
		src, err := endpoint(m[1], m[2], m[3], m[4])
		if err != nil {
			return DiscoveryLine{}, err
		}
		dst, err := endpoint(m[7], m[8], m[9], m[10])
		if err != nil {
			return DiscoveryLine{}, err
		}

		desc := strings.TrimSpace(m[11])
		if parts := descriptionSplit.FindStringSubmatch(desc); parts != nil {
			src.Description = strings.TrimSpace(parts[1])
			dst.Description = strings.TrimSpace(parts[2])
		}

		return DiscoveryLine{
			Kind: LineActive,
			Record: domain.PortRecord{
				Source:      src,
				Dest:        dst,
				Width:       m[5],
				Speed:       m[6],
				Description: desc,
			},
		}, nil
	}

	if m := inactivePortLine.FindStringSubmatch(line); m != nil {
		ep, err := endpoint(m[1], m[2], m[3], m[4])
		if err != nil {
			return DiscoveryLine{}, err
		}
		return DiscoveryLine{Kind: LineInactive, Inactive: ep}, nil
	}

	return DiscoveryLine{}, ErrUnrecognizedLine
}

func endpoint(kind, lid, port, guid string) (domain.PortEndpoint, error) {
	k, err := domain.ParseNodeKind(kind)
	if err != nil {
		return domain.PortEndpoint{}, err
	}
	l, err := strconv.Atoi(lid)
	if err != nil {
		return domain.PortEndpoint{}, fmt.Errorf("lid %q: %w", lid, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return domain.PortEndpoint{}, fmt.Errorf("port %q: %w", port, err)
	}
	return domain.PortEndpoint{Kind: k, LID: l, Port: p, GUID: guid}, nil
}

// DiscoveryStats counts the lines of a discovery dump by kind
type DiscoveryStats struct {
	Active    int
	Inactive  int
	Ignored   int
	Malformed int
}

// maxLineSize bounds a single discovery or route line
const maxLineSize = 1024 * 1024

// ParseDiscovery reads a discovery dump and hands every active-port record
// to visit. Unrecognised lines, and records visit rejects, are logged and
// counted as malformed. Only read errors are returned.
func ParseDiscovery(r io.Reader, log *slog.Logger, visit func(domain.PortRecord) error) (DiscoveryStats, error) {
	var stats DiscoveryStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		parsed, err := ParseDiscoveryLine(line)
		if err != nil {
			stats.Malformed++
			log.Warn("line not recognized", "line", lineNo, "text", line, "error", err)
			continue
		}

		switch parsed.Kind {
		case LineIgnored:
			stats.Ignored++
		case LineInactive:
			stats.Inactive++
		case LineActive:
			if err := visit(parsed.Record); err != nil {
				stats.Malformed++
				log.Warn("record rejected", "line", lineNo, "error", err)
				continue
			}
			stats.Active++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read discovery: %w", err)
	}

	return stats, nil
}

// ReadDiscoveryFile opens path and parses it with ParseDiscovery. Failing
// to open or read the file is fatal.
func ReadDiscoveryFile(path string, log *slog.Logger, visit func(domain.PortRecord) error) (DiscoveryStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return DiscoveryStats{}, fmt.Errorf("%w: open discovery file: %v", ErrFatalInput, err)
	}
	defer f.Close()

	stats, err := ParseDiscovery(f, log.With("file", path), visit)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrFatalInput, err)
	}
	return stats, nil
}
