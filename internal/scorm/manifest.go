package scorm

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Node is the manifest document surface the parser works against. Any
// XML tree can sit behind it; tag and attribute lookups match on local
// names so namespace prefixes (adlcp:, imsss:) are transparent.
type Node interface {
	// Attr returns the attribute value or "" when absent.
	Attr(name string) string
	// Child returns the first child element with the tag, or nil.
	Child(tag string) Node
	// Children returns all child elements with the tag, in document order.
	Children(tag string) []Node
	// Text returns the trimmed character data of the element.
	Text() string
}

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Nodes    []xmlNode  `xml:",any"`
	Chardata string     `xml:",chardata"`
}

func (n *xmlNode) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) Child(tag string) Node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == tag {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *xmlNode) Children(tag string) []Node {
	var out []Node
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == tag {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

func (n *xmlNode) Text() string {
	return strings.TrimSpace(n.Chardata)
}

// ParseManifestXML decodes an imsmanifest.xml document into a Node tree.
func ParseManifestXML(r io.Reader) (Node, error) {
	var root xmlNode
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, ManifestInvalid("malformed manifest XML: %v", err)
	}
	return &root, nil
}

// ScoNode is one entry of the parsed organization tree. Containers are
// kept with Launchable=false so the full outline is reproducible.
type ScoNode struct {
	Identifier string
	Title      string
	Href       string
	LaunchPath string
	Launchable bool
	SortOrder  int
	Children   []*ScoNode
}

type PackageInfo struct {
	Title      string
	Identifier string
	Version    Version
}

type ParsedManifest struct {
	Info                  PackageInfo
	Items                 []*ScoNode
	DefaultOrganizationID string
	OrganizationCount     int
	ResourceCount         int
}

const untitledPackage = "Untitled SCORM"

// ParseManifest validates the manifest and builds the ordered SCO
// forest for the default organization.
func ParseManifest(doc Node) (*ParsedManifest, error) {
	if doc == nil {
		return nil, ManifestInvalid("manifest document is empty")
	}

	version, err := detectVersionFromMetadata(doc)
	if err != nil {
		return nil, err
	}

	orgsNode := doc.Child("organizations")
	if orgsNode == nil {
		return nil, ManifestInvalid("manifest has no organizations element")
	}
	orgs := orgsNode.Children("organization")
	if len(orgs) == 0 {
		return nil, ManifestInvalid("manifest has no organization")
	}
	defaultOrgID := orgsNode.Attr("default")
	org := chooseOrganization(orgs, defaultOrgID)

	info := PackageInfo{
		Title:      untitledPackage,
		Identifier: org.Attr("identifier"),
		Version:    version,
	}
	if title := org.Child("title"); title != nil && title.Text() != "" {
		info.Title = title.Text()
	}
	if info.Identifier == "" {
		info.Identifier = "scorm_" + uuid.NewString()
	}

	resources := collectResources(doc)
	items, err := buildItems(org.Children("item"), resources, version)
	if err != nil {
		return nil, err
	}

	return &ParsedManifest{
		Info:                  info,
		Items:                 items,
		DefaultOrganizationID: defaultOrgID,
		OrganizationCount:     len(orgs),
		ResourceCount:         len(resources),
	}, nil
}

func detectVersionFromMetadata(doc Node) (Version, error) {
	var schema, schemaVersion string
	if meta := doc.Child("metadata"); meta != nil {
		if n := meta.Child("schema"); n != nil {
			schema = n.Text()
		}
		if n := meta.Child("schemaversion"); n != nil {
			schemaVersion = n.Text()
		}
	}
	return DetectVersion(schema, schemaVersion)
}

// chooseOrganization picks the organization whose identifier matches
// the organizations default attribute, falling back to the first one.
func chooseOrganization(orgs []Node, defaultID string) Node {
	if defaultID != "" {
		for _, org := range orgs {
			if org.Attr("identifier") == defaultID {
				return org
			}
		}
	}
	return orgs[0]
}

type resourceEntry struct {
	identifier string
	href       string
	scormType  string
}

func collectResources(doc Node) []resourceEntry {
	resNode := doc.Child("resources")
	if resNode == nil {
		return nil
	}
	children := resNode.Children("resource")
	out := make([]resourceEntry, 0, len(children))
	for _, r := range children {
		// 1.2 spells the attribute scormtype, 2004 scormType
		st := r.Attr("scormtype")
		if st == "" {
			st = r.Attr("scormType")
		}
		out = append(out, resourceEntry{
			identifier: r.Attr("identifier"),
			href:       r.Attr("href"),
			scormType:  strings.ToLower(strings.TrimSpace(st)),
		})
	}
	return out
}

// Resource lists are small; a linear scan beats maintaining an index.
func findResource(resources []resourceEntry, identifier string) *resourceEntry {
	for i := range resources {
		if resources[i].identifier == identifier {
			return &resources[i]
		}
	}
	return nil
}

// buildItems walks item elements depth-first in document order. The
// sibling counter restarts at zero per level so sort_order is densely
// 0-based within each parent.
func buildItems(items []Node, resources []resourceEntry, version Version) ([]*ScoNode, error) {
	var out []*ScoNode
	for order, item := range items {
		node := &ScoNode{
			Identifier: item.Attr("identifier"),
			Title:      "",
			SortOrder:  order,
		}
		if title := item.Child("title"); title != nil {
			node.Title = title.Text()
		}

		if ref := item.Attr("identifierref"); ref != "" {
			res := findResource(resources, ref)
			if res == nil {
				return nil, ResourceNotFound(ref)
			}
			if isLaunchableResource(res, version) {
				node.Launchable = true
				node.Href = res.href
				node.LaunchPath = res.href
				if params := item.Attr("parameters"); params != "" {
					node.LaunchPath += params
				}
			}
		}

		children, err := buildItems(item.Children("item"), resources, version)
		if err != nil {
			return nil, err
		}
		node.Children = children
		out = append(out, node)
	}
	return out, nil
}

// isLaunchableResource applies the version-dependent SCO rule. SCORM
// 2004 requires scormtype="sco"; 1.2 content frequently omits the
// attribute, so an absent or empty scormtype still counts (inherited
// heuristic, deliberately not strengthened).
func isLaunchableResource(res *resourceEntry, version Version) bool {
	if res.href == "" {
		return false
	}
	if version.Is2004() {
		return res.scormType == "sco"
	}
	return res.scormType == "sco" || res.scormType == ""
}

// FirstLaunchable returns the first launchable node in pre-order, the
// package's default entry-point candidate.
func FirstLaunchable(items []*ScoNode) *ScoNode {
	for _, item := range items {
		if item.Launchable {
			return item
		}
		if found := FirstLaunchable(item.Children); found != nil {
			return found
		}
	}
	return nil
}

// CountLaunchable reports the number of launchable nodes in the forest.
func CountLaunchable(items []*ScoNode) int {
	n := 0
	for _, item := range items {
		if item.Launchable {
			n++
		}
		n += CountLaunchable(item.Children)
	}
	return n
}
