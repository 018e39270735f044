// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command perfimport imports a Linux perf.data profile and prints the
// aggregated, annotated result as JSON or as a per-function summary
// table.
package main

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/perfview/perfimport/perfdata"
)

type options struct {
	nm        string
	objdump   string
	cacheRoot string
	output    string
	table     bool
	meta      bool
	debug     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:               "perfimport",
		Short:             "perfimport reads Linux perf.data profiles",
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newImportCmd(opts))
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "sets log level to debug")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [flags] perf.data",
		Short: "Aggregate a perf.data file into per-function counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.nm, "nm", "nm", "command used to enumerate symbols")
	cmd.Flags().StringVar(&opts.objdump, "objdump", "objdump", "command used to disassemble")
	cmd.Flags().StringVar(&opts.cacheRoot, "binary-cache-root", "", "directory prefix for binary paths")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.table, "table", false, "print a per-function summary table instead of JSON")
	cmd.Flags().BoolVar(&opts.meta, "meta", false, "also print the recording metadata")
	return cmd
}

func runImport(opts *options, filename string) error {
	level := zerolog.InfoLevel
	if opts.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	r, err := perfdata.Open(filename,
		perfdata.WithNm(opts.nm),
		perfdata.WithObjdump(opts.objdump),
		perfdata.WithBinaryCacheRoot(opts.cacheRoot),
		perfdata.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	profile, err := r.Import()
	if err != nil {
		return err
	}

	if opts.meta {
		printMeta(r.Meta())
	}
	if opts.table {
		printTable(profile)
		return nil
	}
	return writeJSON(profile, opts.output)
}

func printMeta(meta perfdata.FileMeta) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	for _, row := range [][]string{
		{"hostname", meta.Hostname},
		{"os release", meta.OSRelease},
		{"perf version", meta.Version},
		{"arch", meta.Arch},
		{"cpu", meta.CPUDesc},
		{"cpuid", meta.CPUID},
	} {
		if row[1] != "" {
			table.Append(row)
		}
	}
	table.Render()
}

func printTable(p *perfdata.Profile) {
	events := make([]string, 0, len(p.Counters))
	for name := range p.Counters {
		events = append(events, name)
	}
	sort.Strings(events)

	names := make([]string, 0, len(p.Functions))
	for name := range p.Functions {
		names = append(names, name)
	}
	// Hottest first by the first event, name as tiebreak.
	sort.Slice(names, func(i, j int) bool {
		if len(events) > 0 {
			a := p.Functions[names[i]].Counters[events[0]]
			b := p.Functions[names[j]].Counters[events[0]]
			if a != b {
				return a > b
			}
		}
		return names[i] < names[j]
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(append([]string{"Function"}, events...))
	for _, name := range names {
		row := []string{name}
		for _, ev := range events {
			row = append(row, strconv.FormatUint(p.Functions[name].Counters[ev], 10))
		}
		table.Append(row)
	}
	table.Render()
}

func writeJSON(p *perfdata.Profile, output string) error {
	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
