package main

import (
	"fmt"

	"github.com/fatih/color"
)

// warn prints a warning message to standard error, following the teacher's
// cmd.Warning convention.
func warn(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}
