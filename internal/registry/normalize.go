package registry

import "strings"

// DefaultNamespace is the namespace the resolver test fixtures expect.
const DefaultNamespace = "test"

// Normalizer turns index package names into registry keys. The same
// normalizer must be applied to package names and dependency names.
type Normalizer struct {
	Namespace string
	Raw       bool
}

// NewNormalizer returns a normalizer that lowercases names, replaces
// hyphens with underscores and prefixes namespace when it is non-empty.
func NewNormalizer(namespace string) Normalizer {
	return Normalizer{Namespace: namespace}
}

// RawNames keeps names exactly as published.
func RawNames() Normalizer {
	return Normalizer{Raw: true}
}

// Key returns the registry key for a package name.
func (n Normalizer) Key(name string) string {
	if n.Raw {
		return name
	}
	key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	if n.Namespace != "" {
		key = n.Namespace + "/" + key
	}
	return key
}
