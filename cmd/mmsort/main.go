// Command mmsort sorts, generates, verifies, and serves fixed-width int64
// record files: a leading flag selects the mode, remaining args are
// positional.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mmsort/mmsort/internal/datagen"
	"github.com/mmsort/mmsort/internal/sortcore"
	"github.com/mmsort/mmsort/internal/sortsvc"
	"github.com/mmsort/mmsort/internal/verify"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--gen":
		runGen(os.Args[2:])
	case "--check":
		runCheck(os.Args[2:])
	case "--serve":
		runServe(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
	default:
		runSort(os.Args[1:])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `mmsort - external mmap merge sort for fixed-width int64 records

Usage:
    mmsort <file> [limitMB]           sort file in place
    mmsort --gen <file> <count> [sorted]
    mmsort --check <file>
    mmsort --serve <socket-path>`)
}

func runSort(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: missing <file>")
		printUsage()
		os.Exit(1)
	}

	path := args[0]
	var limitMB int
	if len(args) >= 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid limitMB %q: %v\n", args[1], err)
			os.Exit(1)
		}
		limitMB = v
	}

	if err := sortcore.Sort(path, sortcore.Options{LimitMB: limitMB}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runGen(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: --gen requires <file> <count> [sorted]")
		os.Exit(1)
	}

	path := args[0]
	count, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid count %q: %v\n", args[1], err)
		os.Exit(1)
	}

	sorted := len(args) >= 3 && args[2] == "sorted"

	if err := datagen.Generate(path, datagen.Options{Count: count, Sorted: sorted}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCheck(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: --check requires <file>")
		os.Exit(1)
	}

	res, err := verify.Check(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(res.String())
}

func runServe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: --serve requires <socket-path>")
		os.Exit(1)
	}

	d := sortsvc.New(sortsvc.Config{SocketPath: args[0]})
	if err := d.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
