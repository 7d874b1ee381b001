package processor

import (
	"strings"
	"testing"
)

func TestScopeText(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		html string
		want []string // substrings the flattened text must contain
	}{
		{
			name: "paragraphs",
			html: `<p>This standard applies to active implantable medical devices.</p>
				<p>It covers safety and essential performance.</p>`,
			want: []string{
				"active implantable medical devices",
				"safety and essential performance",
			},
		},
		{
			name: "nested lists",
			html: `<div>Applies to:<ul><li>pacemakers</li><li>defibrillators</li></ul></div>`,
			want: []string{"pacemakers", "defibrillators"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ScopeText(tt.html)
			if err != nil {
				t.Fatalf("ScopeText() error = %v", err)
			}
			if strings.Contains(got, "<") {
				t.Errorf("ScopeText() left markup in output: %q", got)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("ScopeText() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestScopeText_Empty(t *testing.T) {
	p := New()
	got, err := p.ScopeText("")
	if err != nil {
		t.Fatalf("ScopeText() error = %v", err)
	}
	if got != "" {
		t.Errorf("ScopeText(\"\") = %q, want empty string", got)
	}
}

func TestExtractTitle(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "simple title",
			html: `<html><head><title>EN 60601-1 Medical electrical equipment</title></head><body></body></html>`,
			want: "EN 60601-1 Medical electrical equipment",
		},
		{
			name: "whitespace trimmed",
			html: `<html><head><title>  ISO 14708-1  </title></head></html>`,
			want: "ISO 14708-1",
		},
		{
			name: "no title",
			html: `<html><body><h1>Heading only</h1></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ExtractTitle(tt.html); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
