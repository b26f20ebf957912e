package emitter

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/frederic-klein/cratefix/internal/registry"
)

func sampleRegistry() registry.Registry {
	return registry.Registry{
		"foo": {
			"1.0.0": {"bar": ">= 1.2.3 < 1.5.0", "baz": "^0.3"},
			"1.1.0": {},
		},
		"bar": {"1.2.3": {}},
	}
}

func TestEmitter_Emit_JSON(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEmitter(&buf, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Emit(sampleRegistry()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	want := `{
  "bar": {
    "1.2.3": {}
  },
  "foo": {
    "1.0.0": {
      "bar": ">= 1.2.3 < 1.5.0",
      "baz": "^0.3"
    },
    "1.1.0": {}
  }
}
`
	if got := buf.String(); got != want {
		t.Errorf("Emit() =\n%s\nwant:\n%s", got, want)
	}
}

func TestEmitter_Emit_MsgpackBytes(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEmitter(&buf, FormatMsgpack)
	if err != nil {
		t.Fatal(err)
	}

	reg := registry.Registry{"a": {"1": {"b": "^1"}}}
	if err := e.Emit(reg); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	// {"a":{"1":{"b":"^1"}}} as nested fixmaps of fixstrs
	want := []byte{
		0x81, 0xa1, 'a',
		0x81, 0xa1, '1',
		0x81, 0xa1, 'b', 0xa2, '^', '1',
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("Emit() = % x, want % x", buf.Bytes(), want)
	}
}

func TestEmitter_Emit_Deterministic(t *testing.T) {
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			var first, second bytes.Buffer
			for _, buf := range []*bytes.Buffer{&first, &second} {
				e, err := NewEmitter(buf, format)
				if err != nil {
					t.Fatal(err)
				}
				if err := e.Emit(sampleRegistry()); err != nil {
					t.Fatalf("Emit() error = %v", err)
				}
			}
			if !bytes.Equal(first.Bytes(), second.Bytes()) {
				t.Error("two emits of the same registry differ")
			}
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			e, err := NewEmitter(&buf, format)
			if err != nil {
				t.Fatal(err)
			}
			if err := e.Emit(sampleRegistry()); err != nil {
				t.Fatalf("Emit() error = %v", err)
			}

			got, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(sampleRegistry(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Truncated(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte{0x81, 0xa1}), FormatMsgpack); err == nil {
		t.Error("Decode() should fail on truncated input")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", FormatMsgpack, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"msgpack", FormatMsgpack, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
