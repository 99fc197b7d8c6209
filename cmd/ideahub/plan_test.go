package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

func TestPlanCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"engine":{"direct_reddit":true}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := newRootCMD()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"plan", "-c", cfgPath, "--competitor", "Rover", "Dog walking app for busy professionals"})
	if err := root.Execute(); err != nil {
		t.Fatalf("plan: %v", err)
	}

	var got struct {
		Keywords []string            `json:"keywords"`
		Plan     []hub.FetchPlanItem `json:"plan"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(got.Keywords) == 0 || got.Keywords[0] != "walking" {
		t.Fatalf("unexpected keywords %v", got.Keywords)
	}
	var firecrawl, reddit bool
	for _, item := range got.Plan {
		firecrawl = firecrawl || item.Source == hub.SourceFirecrawl
		reddit = reddit || item.Source == hub.SourceReddit
	}
	if !firecrawl || !reddit {
		t.Fatalf("expected firecrawl and direct reddit items, got %+v", got.Plan)
	}
}

func TestPlanCommandRejectsEmptyIdea(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := newRootCMD()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"plan", "-c", cfgPath})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected an error for an empty idea")
	}
}
