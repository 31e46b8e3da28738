package categorize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

func TestRuleTableMatch(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name string
		desc string
		dir  domain.Direction
		want string
	}{
		{
			name: "inflow is income regardless of description",
			desc: "STARBUCKS REFUND",
			dir:  domain.Inflow,
			want: "Income",
		},
		{
			name: "coffee shop",
			desc: "STARBUCKS STORE #123",
			dir:  domain.Outflow,
			want: "Dining Out",
		},
		{
			name: "uber eats beats uber",
			desc: "UBER EATS JUL15 ORDER",
			dir:  domain.Outflow,
			want: "Dining Out",
		},
		{
			name: "uber ride",
			desc: "UBER *TRIP HELP.UBER.COM",
			dir:  domain.Outflow,
			want: "Transportation",
		},
		{
			name: "grocery chain",
			desc: "KROGER #0441",
			dir:  domain.Outflow,
			want: "Groceries",
		},
		{
			name: "case insensitive keyword",
			desc: "NeTfLiX.CoM",
			dir:  domain.Outflow,
			want: "Subscriptions",
		},
		{
			name: "no keyword hit",
			desc: "ZZYZX HOLDINGS LLC",
			dir:  domain.Outflow,
			want: "Other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Match(tt.desc, tt.dir)
			if got != tt.want {
				t.Errorf("Match(%q, %s) = %q, want %q", tt.desc, tt.dir, got, tt.want)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - category: Groceries
    keywords: [" LIDL ", "penny"]
  - category: Dining Out
    keywords:
      - kebab
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	table, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("LoadRules() returned %d rules, want 2", len(table))
	}
	if table[0].Category != "Groceries" {
		t.Errorf("first rule category = %q, want Groceries", table[0].Category)
	}
	if table[0].Keywords[0] != "lidl" {
		t.Errorf("keywords should be trimmed and lowercased, got %q", table[0].Keywords[0])
	}
	if got := table.Match("DONER KEBAB HAUS", domain.Outflow); got != "Dining Out" {
		t.Errorf("Match with loaded rules = %q, want Dining Out", got)
	}
}

func TestLoadRulesErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "no rules key", content: "other: value\n"},
		{name: "rule without category", content: "rules:\n  - keywords: [a]\n"},
		{name: "rule without keywords", content: "rules:\n  - category: Travel\n"},
		{name: "malformed yaml", content: "rules: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := LoadRules(path); err == nil {
				t.Error("LoadRules() expected error, got nil")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadRules(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("LoadRules() expected error for missing file, got nil")
		}
	})
}
