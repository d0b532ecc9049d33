package main

import (
	"fmt"
	"os"
)

// flagDie terminates the program when an invalid flag value was provided.
func flagDie(description string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, description, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(2)
}
