package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "error: failed to load model: invalid magic")
	os.Exit(1)
}
