package scorm

import (
	"path"
	"strings"
)

// FileTree abstracts the extracted package tree for existence checks.
// The storage collaborator owns the physical layout.
type FileTree interface {
	Exists(relPath string) bool
}

// Conventional launch filenames checked at the extraction root when the
// manifest names nothing that exists.
var fallbackEntryPoints = []string{"index.html", "index.htm", "launch.html", "start.html"}

// ResolveEntryPoint finds the default launch target: the first
// launchable leaf of the organization, verified on disk with two
// normalization retries, then the conventional fallback names. Strict
// policy: fails with EntryPointNotFound when nothing resolves.
func ResolveEntryPoint(m *ParsedManifest, tree FileTree) (string, error) {
	candidate := ""
	if first := FirstLaunchable(m.Items); first != nil {
		candidate = first.Href
	}

	if candidate != "" {
		for _, variant := range pathVariants(candidate) {
			if tree.Exists(variant) {
				return variant, nil
			}
		}
	}

	for _, name := range fallbackEntryPoints {
		if tree.Exists(name) {
			return name, nil
		}
	}
	return "", EntryPointNotFound(candidate)
}

// pathVariants tolerates the path inconsistencies real manifests carry:
// leading slashes and redundant ./ segments.
func pathVariants(p string) []string {
	variants := []string{p}
	if stripped := strings.TrimLeft(p, "/"); stripped != p && stripped != "" {
		variants = append(variants, stripped)
	}
	if rejoined := path.Join(path.Dir(p), path.Base(p)); rejoined != p && rejoined != "." {
		variants = append(variants, rejoined)
	}
	return variants
}
