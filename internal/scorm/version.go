package scorm

import "strings"

type Version string

const (
	Version12     Version = "1.2"
	Version2004v2 Version = "2004 2nd Edition"
	Version2004v3 Version = "2004 3rd Edition"
	Version2004v4 Version = "2004 4th Edition"
)

func (v Version) Is2004() bool {
	return v == Version2004v2 || v == Version2004v3 || v == Version2004v4
}

func (v Version) Valid() bool {
	switch v {
	case Version12, Version2004v2, Version2004v3, Version2004v4:
		return true
	}
	return false
}

var allowedSchemas = []string{"ADL SCORM", "SCORM"}

// Ordered so that substring matching is deterministic.
var versionTable = []struct {
	match   string
	version Version
}{
	{"1.2", Version12},
	{"2004 2ND EDITION", Version2004v2},
	{"2004 3RD EDITION", Version2004v3},
	{"2004 4TH EDITION", Version2004v4},
}

// DetectVersion applies the closed, fail-fast schema/schemaversion
// enumeration. Anything outside the table is rejected rather than
// guessed from namespaces.
func DetectVersion(schema, schemaVersion string) (Version, error) {
	normSchema := strings.ToUpper(strings.TrimSpace(schema))
	allowed := false
	for _, s := range allowedSchemas {
		if normSchema == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", UnsupportedSchema(schema)
	}

	normVersion := strings.ToUpper(strings.TrimSpace(schemaVersion))
	for _, entry := range versionTable {
		if strings.Contains(normVersion, entry.match) {
			return entry.version, nil
		}
	}
	return "", UnsupportedVersion(schemaVersion)
}
