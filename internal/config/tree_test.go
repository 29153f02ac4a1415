package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func parseTree(t *testing.T, src string) Tree {
	t.Helper()
	var m map[string]any
	if err := yaml.Unmarshal([]byte(src), &m); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return Tree(m)
}

func TestTree_Accessors(t *testing.T) {
	tree := parseTree(t, `
rescore_window: 400
penalties:
  penalty_factor: 0.3
  fields:
    - name: warc_target_path
      value: /spam.*
    - not an object
flag: true
flag_str: "false"
number_str: "12"
ratio: 2
langs: [en, de]
`)

	if got := tree.Int("rescore_window", 0); got != 400 {
		t.Errorf("Int = %d", got)
	}
	if got := tree.Int("number_str", 0); got != 12 {
		t.Errorf("Int(string) = %d", got)
	}
	if got := tree.Int("missing", 7); got != 7 {
		t.Errorf("Int default = %d", got)
	}
	if got := tree.Float("penalties.penalty_factor", 0); got != 0.3 {
		t.Errorf("Float = %v", got)
	}
	if got := tree.Float("ratio", 0); got != 2 {
		t.Errorf("Float(int) = %v", got)
	}
	if tree.OptFloat("missing") != nil {
		t.Error("OptFloat(missing) should be nil")
	}
	if !tree.Bool("flag", false) || tree.Bool("flag_str", true) {
		t.Error("Bool mismatch")
	}
	if got := tree.Bool("penalties", true); !got {
		t.Error("Bool on a section should fall back to default")
	}
	if got := tree.String("rescore_window", ""); got != "400" {
		t.Errorf("String(int) = %q", got)
	}
	if got := tree.String("penalties.missing", "def"); got != "def" {
		t.Errorf("String default = %q", got)
	}

	fields := tree.Sub("penalties").Array("fields")
	if len(fields) != 1 || fields[0].String("value", "") != "/spam.*" {
		t.Errorf("Array = %v", fields)
	}
	if got := tree.Strings("langs", nil); len(got) != 2 || got[1] != "de" {
		t.Errorf("Strings = %v", got)
	}
	if len(tree.Sub("nope")) != 0 {
		t.Error("Sub(missing) should be empty")
	}
	if tree.Array("flag") != nil {
		t.Error("Array on a scalar should be nil")
	}
}
