// reel - extract the colour palette of a video
//
// reel samples video frames, ranks their colours by frequency and groups
// them into representative clusters with weighted k-means.
package main

import (
	"os"

	"github.com/jmylchreest/reel/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
