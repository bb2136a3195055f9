package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandShowsHelp(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	help := out.String()
	for _, sub := range []string{"status", "modules", "sessions", "ask", "jobs", "export", "config"} {
		if !strings.Contains(help, sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "lectern ") {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}

func TestRenderTable(t *testing.T) {
	rendered := renderTable([]string{"ID", "Name"}, [][]string{{"m1", "Operating Systems"}})
	if !strings.Contains(rendered, "Operating Systems") {
		t.Fatalf("table missing row data:\n%s", rendered)
	}
	if !strings.Contains(rendered, "ID") {
		t.Fatalf("table missing header:\n%s", rendered)
	}
}
