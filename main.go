// The main package for the linkcheck executable.
package main

import (
	"github.com/JakeFAU/linkcheck/cmd"
)

func main() {
	cmd.Execute()
}
