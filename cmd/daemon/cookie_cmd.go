// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ManuGH/ytgrab/internal/config"
	"github.com/ManuGH/ytgrab/internal/version"
)

const cookieUsage = `usage: daemon cookie [-config FILE] <command>

commands:
  set <path|->   store a cookies.txt file or raw Cookie header ("-" reads stdin)
  clear          delete the stored cookie
  status         report whether a cookie is stored`

// runCookieCLI manages the stored session cookie. A running daemon picks up
// changes through its file watcher.
func runCookieCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cookie", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	fs.Usage = func() { fmt.Fprintln(stderr, cookieUsage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.NewLoader(*configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	store := newCookieStore(cfg)

	switch rest[0] {
	case "set":
		if len(rest) != 2 {
			fs.Usage()
			return 2
		}
		content, err := readSource(rest[1], stdin)
		if err != nil {
			fmt.Fprintf(stderr, "read cookie: %v\n", err)
			return 1
		}
		if err := store.Save(string(content)); err != nil {
			fmt.Fprintf(stderr, "save cookie: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "cookie stored in %s\n", store.Path())
	case "clear":
		if err := store.Clear(); err != nil {
			fmt.Fprintf(stderr, "clear cookie: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "cookie cleared")
	case "status":
		st := store.Status()
		fmt.Fprintf(stdout, "hasCookie=%t source=%s", st.HasCookie, st.Source)
		if !st.UpdatedAt.IsZero() {
			fmt.Fprintf(stdout, " updated=%s", st.UpdatedAt.UTC().Format(time.RFC3339))
		}
		fmt.Fprintln(stdout)
	default:
		fs.Usage()
		return 2
	}
	return 0
}

func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	// #nosec G304 -- path is given by the operator on the command line
	return os.ReadFile(path)
}
