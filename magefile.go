//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles both executables into ./bin
func Build() error {
	mg.Deps(BuildDecoder, BuildMeasureAlgos)
	fmt.Println("Compilation finished")
	return nil
}

func BuildDecoder() error {
	fmt.Println("Building decoder executable...")
	return goCommand("build", "-o", "./bin/etroc-decoder", "./decoder")
}

func BuildMeasureAlgos() error {
	fmt.Println("Building measureAlgos executable...")
	return goCommand("build", "-o", "./bin/measureAlgos", "./measureAlgos")
}

// Test runs the library tests; hdf5 needs cgo even there.
func Test() error {
	return goCommand("test", "./pkg/...")
}

func Clean() error {
	fmt.Println("Removing ./bin")
	return os.RemoveAll("./bin")
}

// goCommand runs the go tool with cgo enabled and the caller's cgo flags.
func goCommand(args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
		fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
