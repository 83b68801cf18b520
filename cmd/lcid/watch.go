package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// watchCommand keeps an Engine open and its Watcher/Incremental Indexer pipeline
// running until interrupted, for a repository that should stay continuously in sync
// rather than being reindexed on demand.
var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Keep the index in sync with the filesystem until interrupted",
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Println("watching for changes, press Ctrl-C to stop")
		<-c.Context.Done()
		return nil
	},
}
