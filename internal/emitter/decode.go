package emitter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tinylib/msgp/msgp"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/cratefix/internal/registry"
)

// Decode reads a registry written by Emit.
func Decode(r io.Reader, format string) (registry.Registry, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	reg := make(registry.Registry)
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&reg); err != nil {
			return nil, fmt.Errorf("decoding json registry: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&reg); err != nil {
			return nil, fmt.Errorf("decoding yaml registry: %w", err)
		}
	default:
		if err := decodeMsgpack(msgp.NewReader(r), reg); err != nil {
			return nil, fmt.Errorf("decoding msgpack registry: %w", err)
		}
	}
	return reg, nil
}

func decodeMsgpack(r *msgp.Reader, reg registry.Registry) error {
	return readMap(r, func(pkg string) error {
		table := make(registry.VersionTable)
		reg[pkg] = table
		return readMap(r, func(ver string) error {
			deps := make(registry.DependencyMap)
			table[ver] = deps
			return readMap(r, func(name string) error {
				rng, err := r.ReadString()
				if err != nil {
					return err
				}
				deps[name] = rng
				return nil
			})
		})
	})
}

// readMap reads a map header and calls value for each key; value must
// consume the entry's value.
func readMap(r *msgp.Reader, value func(key string) error) error {
	n, err := r.ReadMapHeader()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		if err := value(key); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}
