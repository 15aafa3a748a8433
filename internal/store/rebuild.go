package store

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// markerPrefix introduces the machine-readable comment the compiler emits
// above every generated backend block. Rebuild parses only these markers,
// never the HAProxy grammar itself.
const markerPrefix = "# dockgate:backend "

// Marker renders the rebuild comment for an entry. Kept next to the parser
// so the two cannot drift apart.
func Marker(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sinstance=%s domain=%s port=%d family=%s",
		markerPrefix, e.Instance, e.Domain, e.InternalPort, e.Family)
	if e.ExternalPort != 0 {
		fmt.Fprintf(&b, " external=%d", e.ExternalPort)
	}
	return b.String()
}

// RebuildFromConfig reverse-engineers backend entries from the marker
// comments in a previously generated proxy configuration. This is the
// degraded recovery path used when the JSON store document is lost; lines
// that do not parse cleanly are skipped rather than failing the rebuild.
func RebuildFromConfig(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open proxy config: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, markerPrefix) {
			continue
		}
		if e, ok := parseMarker(strings.TrimPrefix(line, markerPrefix)); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: scan proxy config: %w", err)
	}

	return entries, nil
}

func parseMarker(fields string) (Entry, bool) {
	var e Entry
	for _, kv := range strings.Fields(fields) {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return Entry{}, false
		}
		switch key {
		case "instance":
			e.Instance = value
		case "domain":
			e.Domain = value
		case "port":
			p, err := parsePort(value)
			if err != nil {
				return Entry{}, false
			}
			e.InternalPort = p
		case "external":
			p, err := parsePort(value)
			if err != nil {
				return Entry{}, false
			}
			e.ExternalPort = p
		case "family":
			f, err := ParseFamily(value)
			if err != nil {
				return Entry{}, false
			}
			e.Family = f
		}
	}

	if e.Instance == "" || e.Domain == "" || e.InternalPort == 0 || !e.Family.Valid() {
		return Entry{}, false
	}
	return e, true
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}
