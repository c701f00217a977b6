package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"voxxle.ai/internal/persistence/progress"
	"voxxle.ai/internal/sim/catalogs"
)

// progressCmd prints the saved progress file, or with -reset rewrites it to the
// catalog's initial unlock state.
func progressCmd(out io.Writer, args []string) int {
	fs := flag.NewFlagSet("progress", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	configDir := fs.String("configs", "./configs", "config directory")
	reset := fs.Bool("reset", false, "overwrite saved progress with the initial state")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := filepath.Join(*dataDir, "progress.zst")

	if *reset {
		cat, err := catalogs.LoadOrDefault(filepath.Join(*configDir, "levels.json"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "load levels:", err)
			return 1
		}
		if err := progress.NewStore(path).SaveProgress(cat.Digest, cat.Status()); err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
			return 1
		}
		fmt.Fprintf(out, "reset %s (%d levels)\n", path, cat.LevelCount())
		return 0
	}

	f, err := progress.Read(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		return 1
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(f)
	return 0
}
