package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var reindexCommand = &cli.Command{
	Name:  "reindex",
	Usage: "Rebuild the index for the whole repository, or a single file",
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		path := c.Args().First()
		count, err := e.Reindex(c.Context, path)
		if err != nil {
			return err
		}
		fmt.Printf("reindexed %d file(s)\n", count)
		return nil
	},
}
