package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("expected YAMLFormatter")
	}
	tf, ok := NewFormatter("unknown", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("expected wide TableFormatter as default")
	}
}

type report struct {
	Records      int   `json:"records" yaml:"records"`
	Bytes        int64 `json:"bytes" yaml:"bytes"`
	MaxPartition int   `json:"max_partition" yaml:"max_partition"`
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, report{Records: 2, Bytes: 14, MaxPartition: 1}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"records": 2`, `"bytes": 14`, `"max_partition": 1`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, report{Records: 2, Bytes: 14, MaxPartition: 1}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "records: 2\nbytes: 14\nmax_partition: 1\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestFormatters_Table(t *testing.T) {
	table := &Table{Headers: []string{"ID", "STEPS"}, Rows: [][]string{{"pcch-a", "3"}}}

	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, table); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "- id: pcch-a\n  steps: \"3\"\n" {
		t.Errorf("YAML table = %q", buf.String())
	}

	buf.Reset()
	if err := (&JSONFormatter{}).Format(&buf, table); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"id": "pcch-a"`) {
		t.Errorf("JSON table = %q", buf.String())
	}
}
