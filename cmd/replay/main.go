package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	persistlog "voxxle.ai/internal/persistence/log"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/sim/tuning"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory containing moves/")
		configDir = flag.String("configs", "./configs", "config directory")
		asJSON    = flag.Bool("json", false, "print the report as JSON")
	)
	flag.Parse()
	os.Exit(run(os.Stdout, *dataDir, *configDir, *asJSON))
}

// run replays every recorded move against fresh progress; boot entries in the
// log bring back the progress each server run started from. It returns the
// process exit code.
func run(out io.Writer, dataDir, configDir string, asJSON bool) int {
	tune, err := tuning.LoadOrDefault(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		return 1
	}
	cat, err := catalogs.LoadOrDefault(filepath.Join(configDir, "levels.json"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load levels:", err)
		return 1
	}
	entries, err := persistlog.ReadMoves(dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read moves:", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no moves under", filepath.Join(dataDir, "moves"))
		return 2
	}

	rep := game.Replay(nil, cat, game.Config{Session: tune.SessionOptions()}, entries)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
	} else {
		fmt.Fprintf(out, "replayed entries=%d boots=%d sessions=%d solves=%d mismatches=%d first_seq=%d last_seq=%d\n",
			rep.Entries, rep.Boots, rep.Sessions, rep.Solves, len(rep.Mismatches), entries[0].Seq, entries[len(entries)-1].Seq)
		for _, m := range rep.Mismatches {
			fmt.Fprintf(out, "MISMATCH seq=%d session=%s op=%s want=%q got=%q\n", m.Seq, m.Session, m.Op, m.Want, m.Got)
		}
	}
	if len(rep.Mismatches) > 0 {
		return 1
	}
	return 0
}
