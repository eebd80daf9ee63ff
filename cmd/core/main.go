// Package main provides the Vitara client core entry point.
// This is a platform-agnostic library that can be compiled as:
// - Shared library for mobile (Dart FFI)
// - Local daemon for desktop
package main

import (
	"fmt"
	"log"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	fmt.Printf("Vitara Core v%s\n", Version)
	log.Println("Vitara Client Core - Platform-Agnostic Library")
}
