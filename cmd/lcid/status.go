package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Report index size and freshness for the repository",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		status, err := e.GetStatus(c.Context)
		if err != nil {
			return err
		}

		if c.Bool("json") {
			return printJSON(status)
		}
		fmt.Printf("files:   %d\n", status.Files)
		fmt.Printf("symbols: %d\n", status.Symbols)
		fmt.Printf("memory:  %d bytes\n", status.MemoryBytes)
		if !status.LastIndexedAt.IsZero() {
			fmt.Printf("updated: %s\n", status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}

var listExtractorsCommand = &cli.Command{
	Name:    "list-extractors",
	Aliases: []string{"extractors"},
	Usage:   "List the language extractors this build knows about",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		extractors := e.ListExtractors(c.Context)
		if c.Bool("json") {
			return printJSON(extractors)
		}
		for _, x := range extractors {
			kind := "generic"
			if x.Enhanced {
				kind = "enhanced"
			}
			fmt.Printf("%-12s %-8s %v\n", x.Language, kind, x.Suffixes)
		}
		return nil
	},
}
