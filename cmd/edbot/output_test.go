package main

import (
	"strings"
	"testing"
)

func TestColorizeRespectsNoColor(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorGreen, "ok"); strings.Contains(got, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", got)
	}

	noColor = false
	if got := colorize(colorGreen, "ok"); !strings.Contains(got, colorGreen) || !strings.Contains(got, colorReset) {
		t.Errorf("colorize with noColor=false should wrap in ANSI codes, got %q", got)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "status"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}
