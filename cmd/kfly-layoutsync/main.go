// Command kfly-layoutsync scans a firmware source tree for
// @kfly:id=0xNN,cmd=Name tagged C structs and reports any command
// whose C byte size disagrees with the registered Go wire size. It is
// meant to run in CI against the firmware repo checked out alongside
// this module.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kfly-project/kfly-comm/pkg/layoutsync"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

func runScan(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	root := fs.String("root", ".", "firmware source root to scan")
	recursive := fs.Bool("recursive", true, "descend into subdirectories")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	report, err := layoutsync.Scan(*root, layoutsync.ScanOptions{Recursive: *recursive})
	if err != nil {
		fmt.Fprintln(stderr, "scan failed:", err)
		return 1
	}

	fmt.Fprintf(stdout, "[layoutsync] checked %d file(s)\n", len(report.Checked))
	for _, u := range report.Unknown {
		fmt.Fprintf(stdout, "[layoutsync] unknown command %q tagged in %s\n", u.Command, u.Source)
	}

	if err := report.Error(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "[layoutsync] no layout drift found")
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  kfly-layoutsync scan [--root path] [--recursive]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  scan   cross-check tagged C structs against the Go datagram layouts")
}
