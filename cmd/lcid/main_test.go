package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestContext(t *testing.T, root string) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("root", root, "")
	c := cli.NewContext(&cli.App{}, fs, nil)
	require.NoError(t, c.Set("root", root))
	c.Context = context.Background()
	return c
}

func TestOpenEngineDefaultsRootToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(wd)) }()

	c := newTestContext(t, "")
	e, err := openEngine(c)
	require.NoError(t, err)
	defer e.Close()
}

func TestOpenEngineResolvesExplicitRoot(t *testing.T) {
	dir := t.TempDir()
	c := newTestContext(t, dir)

	e, err := openEngine(c)
	require.NoError(t, err)
	defer e.Close()
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	type payload struct {
		Name string `json:"name"`
	}
	err = printJSON(payload{Name: "lcid"})
	require.NoError(t, w.Close())
	os.Stdout = oldStdout
	require.NoError(t, err)

	_, copyErr := buf.ReadFrom(r)
	require.NoError(t, copyErr)

	var decoded payload
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "lcid", decoded.Name)
}
