package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(dispatch(os.Stdout, os.Args[1:]))
}

func dispatch(out io.Writer, args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "status":
		return statusCmd(out, args[1:])
	case "db":
		return dbCmd(out, args[1:])
	case "progress":
		return progressCmd(out, args[1:])
	default:
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin status|db|progress [flags]")
}
