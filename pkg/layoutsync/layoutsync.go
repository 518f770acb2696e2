// Package layoutsync cross-checks the Go datagram structs in package
// kfly against the authoritative C struct definitions in the firmware
// source tree, catching layout drift between the two before it ever
// reaches a device. It is not part of the core library: the core never
// reads a filesystem.
package layoutsync

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kfly-project/kfly-comm/pkg/kfly"
)

// Mismatch describes one command whose C and Go layouts disagree.
type Mismatch struct {
	Command  string
	Source   string
	CSize    int
	GoSize   int
}

// Report is the result of scanning a firmware source tree.
type Report struct {
	Checked   []string
	Mismatches []Mismatch
	Unknown   []TaggedStruct // tagged structs naming a command layoutsync doesn't recognize
}

// TaggedStruct is one `@kfly:id=...,cmd=...` annotated struct found
// during a scan, independent of whether it matched a known command.
type TaggedStruct struct {
	Command  string
	Source   string
	ByteSize int
	Fields   []FieldDef
}

// FieldDef is one parsed C struct field.
type FieldDef struct {
	Name   string
	CType  string
	Offset int
	Size   int
}

// ScanOptions controls which files are visited.
type ScanOptions struct {
	Extensions []string // defaults to .h, .c
	IgnoreDirs []string // defaults to .git, build
	Recursive  bool
}

func (o ScanOptions) withDefaults() ScanOptions {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".h", ".c"}
	}
	if len(o.IgnoreDirs) == 0 {
		o.IgnoreDirs = []string{".git", "build"}
	}
	return o
}

// Scan walks root looking for `@kfly:id=0xNN,cmd=CommandName` tagged
// structs, parses their C layout, and reports every command whose C
// byte size disagrees with the registered Go wire size.
func Scan(root string, opts ScanOptions) (Report, error) {
	opts = opts.withDefaults()
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	ignore := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		ignore[d] = struct{}{}
	}

	var report Report
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root {
				if !opts.Recursive {
					return filepath.SkipDir
				}
				if _, skip := ignore[d.Name()]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		tagged, err := parseTaggedFile(path, root)
		if err != nil {
			return err
		}
		if len(tagged) == 0 {
			return nil
		}
		report.Checked = append(report.Checked, path)
		for _, t := range tagged {
			cmd, known := kfly.CommandByName(t.Command)
			if !known {
				report.Unknown = append(report.Unknown, t)
				continue
			}
			goSize, _ := kfly.WireSize(cmd)
			if goSize != t.ByteSize {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Command: t.Command,
					Source:  t.Source,
					CSize:   t.ByteSize,
					GoSize:  goSize,
				})
			}
		}
		return nil
	})
	if walkErr != nil {
		return Report{}, walkErr
	}

	sort.Strings(report.Checked)
	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].Command < report.Mismatches[j].Command
	})
	return report, nil
}

// Error renders a Report as a single combined error if it found any
// mismatches, or nil if the tree is clean.
func (r Report) Error() error {
	if len(r.Mismatches) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "layoutsync: %d datagram(s) disagree with firmware layout:\n", len(r.Mismatches))
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "  %s (%s): C=%d bytes, Go=%d bytes\n", m.Command, m.Source, m.CSize, m.GoSize)
	}
	return errors.New(b.String())
}
