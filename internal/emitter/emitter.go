package emitter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tinylib/msgp/msgp"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/cratefix/internal/registry"
)

// Output formats.
const (
	FormatMsgpack = "msgpack"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// Formats lists the supported formats, default first.
var Formats = []string{FormatMsgpack, FormatJSON, FormatYAML}

// ParseFormat validates a format name.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case "":
		return FormatMsgpack, nil
	case FormatMsgpack, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "mp", "messagepack":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(Formats, ", "))
}

// Emitter writes a registry in one format. Keys are always written in
// sorted order so repeated runs produce identical bytes.
type Emitter struct {
	w      io.Writer
	format string
}

// NewEmitter creates an emitter for format.
func NewEmitter(w io.Writer, format string) (*Emitter, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return &Emitter{w: w, format: f}, nil
}

// Format returns the emitter's format.
func (e *Emitter) Format() string {
	return e.format
}

// Emit writes reg.
func (e *Emitter) Emit(reg registry.Registry) error {
	switch e.format {
	case FormatJSON:
		enc := json.NewEncoder(e.w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(reg)
	case FormatYAML:
		enc := yaml.NewEncoder(e.w)
		enc.SetIndent(2)
		if err := enc.Encode(reg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return e.emitMsgpack(reg)
	}
}

func (e *Emitter) emitMsgpack(reg registry.Registry) error {
	w := msgp.NewWriter(e.w)

	if err := w.WriteMapHeader(uint32(len(reg))); err != nil {
		return err
	}
	for _, pkg := range reg.Packages() {
		table := reg[pkg]
		if err := w.WriteString(pkg); err != nil {
			return err
		}
		if err := w.WriteMapHeader(uint32(len(table))); err != nil {
			return err
		}
		for _, ver := range table.Versions() {
			deps := table[ver]
			if err := w.WriteString(ver); err != nil {
				return err
			}
			if err := w.WriteMapHeader(uint32(len(deps))); err != nil {
				return err
			}
			for _, name := range deps.Names() {
				if err := w.WriteString(name); err != nil {
					return err
				}
				if err := w.WriteString(deps[name]); err != nil {
					return err
				}
			}
		}
	}

	return w.Flush()
}
