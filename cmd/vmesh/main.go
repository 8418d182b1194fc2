// Command vmesh converts a triangle mesh into a voxel grid or a
// sparse voxel octree file.
package main

import (
	"os"

	"github.com/Spatchler/VMesh-CLI/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
