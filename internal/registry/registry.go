package registry

import (
	"sort"
	"strings"
)

// Registry maps a package name to its published versions.
type Registry map[string]VersionTable

// VersionTable maps a version (build metadata stripped) to its dependencies.
type VersionTable map[string]DependencyMap

// DependencyMap maps a dependency name to a desugared range.
type DependencyMap map[string]string

// Record is one line of an index file. Fields other than these are ignored.
type Record struct {
	Name string          `json:"name"`
	Vers string          `json:"vers"`
	Deps []RawDependency `json:"deps"`
}

// RawDependency is a dependency edge as published in the index.
type RawDependency struct {
	Name     string `json:"name"`
	Req      string `json:"req"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional"`
}

// KindNormal is the only dependency kind kept in the registry.
const KindNormal = "normal"

// Required reports whether the dependency is a non-optional runtime dependency.
func (d RawDependency) Required() bool {
	return d.Kind == KindNormal && !d.Optional
}

// MergeStrategy controls how two registries defining the same package combine.
type MergeStrategy int

const (
	// MergeReplace lets the later version table replace the earlier one wholesale.
	MergeReplace MergeStrategy = iota
	// MergeVersions merges version tables key by key, later entries winning.
	MergeVersions
)

// ParseMergeStrategy maps a flag value to a MergeStrategy.
func ParseMergeStrategy(s string) (MergeStrategy, bool) {
	switch strings.ToLower(s) {
	case "", "replace":
		return MergeReplace, true
	case "versions":
		return MergeVersions, true
	default:
		return MergeReplace, false
	}
}

func (m MergeStrategy) String() string {
	if m == MergeVersions {
		return "versions"
	}
	return "replace"
}

// Merge folds other into r. Tables from other are stored by reference.
func (r Registry) Merge(other Registry, strategy MergeStrategy) {
	for pkg, table := range other {
		existing, ok := r[pkg]
		if !ok || strategy == MergeReplace {
			r[pkg] = table
			continue
		}
		for ver, deps := range table {
			existing[ver] = deps
		}
	}
}

// Packages returns the package names in sorted order.
func (r Registry) Packages() []string {
	return sortedKeys(r)
}

// Versions returns the version keys of a table in sorted order.
func (t VersionTable) Versions() []string {
	return sortedKeys(t)
}

// Names returns the dependency names in sorted order.
func (d DependencyMap) Names() []string {
	return sortedKeys(d)
}

// Stats summarises a registry for logging.
type Stats struct {
	Packages     int
	Versions     int
	Dependencies int
}

// Stats counts packages, versions and dependency edges.
func (r Registry) Stats() Stats {
	var s Stats
	s.Packages = len(r)
	for _, table := range r {
		s.Versions += len(table)
		for _, deps := range table {
			s.Dependencies += len(deps)
		}
	}
	return s
}

// StripBuildMetadata removes a trailing "+..." suffix from a version.
func StripBuildMetadata(version string) string {
	if idx := strings.IndexByte(version, '+'); idx != -1 {
		return version[:idx]
	}
	return version
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
