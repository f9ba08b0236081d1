// Command notata inspects run and experiment directories.
package main

import "github.com/mesh-intelligence/notata/internal/cli"

func main() {
	cli.Execute()
}
