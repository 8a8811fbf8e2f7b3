//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "linkmemory"
	mainPath   = "./cmd/linkmemory"
)

// Default target to run when none is specified
var Default = Build

// Build compiles the linkmemory binary. The Anki exporter needs cgo for
// go-sqlite3.
func Build() error {
	fmt.Println("Building", binaryName)
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, "go", "build", "-o", binaryName, mainPath)
}

// Test runs all tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install installs the binary into $GOPATH/bin
func Install() error {
	mg.Deps(Test)
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, "go", "install", mainPath)
}

// Clean removes the binary and Anki files written to the working directory
func Clean() error {
	fmt.Println("Cleaning")
	if err := sh.Rm(binaryName); err != nil {
		return err
	}
	matches, _ := filepath.Glob("*.apkg")
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return sh.Rm("linkmemory_import.csv")
}
