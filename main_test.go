package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"hello-http": run,
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()
	testscript.Run(t, testscript.Params{ //nolint:exhaustruct // not needed
		Dir: "testdata/script",
		Setup: func(e *testscript.Env) error {
			e.Setenv("HELLO_HTTP_CONFIG", "")
			e.Setenv("XDG_CONFIG_HOME", e.WorkDir)
			return nil
		},
	})
}
