//go:build !wasip1

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "wah-wasi-config only runs as a wasip1 module; build with GOOS=wasip1 GOARCH=wasm")
	os.Exit(1)
}
