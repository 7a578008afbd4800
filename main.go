// The main package for the searchive executable.
package main

import "github.com/searchive/searchive/cmd"

func main() {
	cmd.Execute()
}
