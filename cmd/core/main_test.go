// Package main tests for the core library entry point.
package main

import (
	"strings"
	"testing"
)

func TestVersionDefault(t *testing.T) {
	// In production, Version is set by build flags; it must never be empty.
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestPrintVersionFormat(t *testing.T) {
	banner := "Vitara Core v" + Version
	if !strings.HasPrefix(banner, "Vitara Core v") {
		t.Errorf("unexpected banner: %q", banner)
	}
}
