package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var searchCommand = &cli.Command{
	Name:    "search",
	Aliases: []string{"s"},
	Usage:   "Search indexed code by full text, trigram and (optionally) semantic similarity",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of results",
			Value:   20,
		},
		&cli.BoolFlag{
			Name:  "semantic",
			Usage: "Widen results with semantic (vector) search when configured",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return cli.Exit("search requires a query argument", 1)
		}
		query := c.Args().First()

		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		results, err := e.SearchCode(c.Context, query, c.Bool("semantic"), c.Int("limit"))
		if err != nil {
			return err
		}

		if c.Bool("json") {
			return printJSON(results)
		}
		for _, r := range results {
			fmt.Printf("%s:%d: %s\n", r.RelativeFile, r.Line, r.Snippet)
		}
		return nil
	},
}

var lookupCommand = &cli.Command{
	Name:    "lookup",
	Aliases: []string{"l"},
	Usage:   "Look up a symbol's definition by exact name",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return cli.Exit("lookup requires a symbol name argument", 1)
		}
		name := c.Args().First()

		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		sym, ok, err := e.SymbolLookup(c.Context, name)
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit(fmt.Sprintf("no definition found for %q", name), 1)
		}

		if c.Bool("json") {
			return printJSON(sym)
		}
		fmt.Printf("%s %s at %s:%d\n", sym.Kind, sym.Name, sym.RelativeFile, sym.Start.Line)
		if sym.Signature != "" {
			fmt.Println(sym.Signature)
		}
		return nil
	},
}
