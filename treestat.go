/*
treestat reads a line-delimited JSON phylogenetic tree export (the metadata
header on the first line, one node record per following line) and prints
summary statistics about it.

usage: treestat [ -n <newick> | -p <prefix> | -c <csv> | -h | -v ] <input>

positional arguments:

	<input>	tree export, gzip compressed when the name ends in .gz

flags:

	-c file
	  	write clade label counts to csv file
	-h	prints this message and exits
	-n file
	  	write the reconstructed tree to newick file
	-p prefix
	  	write histogram of branch distances to <prefix>.png
	-v	prints version number and exits

examples:

	treestat tree.jsonl.gz > summary.txt 2> log.txt
	treestat -n tree.nwk -p dist tree.jsonl
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	gr "github.com/jsdoublel/treestat/internal/graphs"
	pr "github.com/jsdoublel/treestat/internal/prep"
	"github.com/jsdoublel/treestat/internal/schema"
	"github.com/jsdoublel/treestat/internal/stats"
)

const (
	Version    = "v0.1.0"
	ErrMessage = "treestat encountered an error ::"

	maxReported = 10 // tip count mismatches logged individually
)

type args struct {
	inputFile  string // tree export
	newickFile string // optional newick output
	plotPrefix string // optional histogram output prefix
	cladeFile  string // optional clade csv output
}

// node records are only kept in memory when an output needs the whole tree
func (a args) keepNodes() bool {
	return a.newickFile != "" || a.plotPrefix != ""
}

type command int

const (
	runCommand command = iota
	helpCommand
	versionCommand
)

var errNoInput = errors.New("one positional argument required: <input>")

func usage() {
	fmt.Fprint(os.Stdout,
		"usage: treestat [ -n <newick> | -p <prefix> | -c <csv> | -h | -v ] <input>\n",
		"\n",
		"positional arguments:\n\n",
		"  <input>\ttree export (.jsonl, or .jsonl.gz for gzip compressed input)\n",
		"\n",
		"flags:\n\n",
	)
	flag.PrintDefaults()
	fmt.Fprint(os.Stdout,
		"\n",
		"examples:\n\n",
		"\ttreestat tree.jsonl.gz > summary.txt 2> log.txt\n",
		"\ttreestat -n tree.nwk -p dist tree.jsonl\n",
	)
}

// Defines the flags on fs and parses argv. Positional arguments after the
// first are ignored.
func parseFlags(fs *flag.FlagSet, argv []string) (args, command, error) {
	newickFile := fs.String("n", "", "write the reconstructed tree to newick `file`")
	plotPrefix := fs.String("p", "", "write histogram of branch distances to <`prefix`>.png")
	cladeFile := fs.String("c", "", "write clade label counts to csv `file`")
	help := fs.Bool("h", false, "prints this message and exits")
	ver := fs.Bool("v", false, "prints version number and exits")
	if err := fs.Parse(argv); err != nil {
		return args{}, runCommand, err
	}
	switch {
	case *help:
		return args{}, helpCommand, nil
	case *ver:
		return args{}, versionCommand, nil
	case fs.NArg() < 1:
		return args{}, runCommand, errNoInput
	case fs.NArg() > 1:
		log.Printf("WARNING: ignoring %d extra positional argument(s)", fs.NArg()-1)
	}
	return args{
		inputFile:  fs.Arg(0),
		newickFile: *newickFile,
		plotPrefix: *plotPrefix,
		cladeFile:  *cladeFile,
	}, runCommand, nil
}

func parseArgs() args {
	flag.CommandLine.SetOutput(os.Stdout)
	flag.Usage = usage
	a, cmd, err := parseFlags(flag.CommandLine, os.Args[1:])
	switch {
	case err != nil:
		parserError(err.Error())
	case cmd == helpCommand:
		flag.Usage()
		os.Exit(0)
	case cmd == versionCommand:
		fmt.Printf("treestat version %s\n", Version)
		os.Exit(0)
	}
	return a
}

// prints message, usage, and exits (status code 1)
func parserError(message string) {
	fmt.Fprintln(os.Stdout, message)
	flag.Usage()
	os.Exit(1)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	args := parseArgs()
	log.Printf("treestat version %s", Version)
	if err := run(args, os.Stdout); err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
}

// Reads the input and writes the summaries to w and any requested output files
func run(args args, w io.Writer) (err error) {
	lines, err := pr.OpenLines(args.inputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := lines.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing %s: %w", args.inputFile, cerr)
		}
	}()
	log.Printf("reading metadata from %s", args.inputFile)
	meta, err := pr.ReadMetadata(lines)
	if err != nil {
		return err
	}
	if err := pr.WriteMetadataSummary(w, meta); err != nil {
		return err
	}
	log.Println("reading nodes")
	agg := stats.NewAggregator()
	var records []*schema.Node
	n, err := pr.ReadNodes(lines, func(node *schema.Node) error {
		agg.Add(node)
		if args.keepNodes() {
			records = append(records, node)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("read %d nodes", n)
	if uint(n) != meta.TotalNodes {
		log.Printf("WARNING: metadata declares %d nodes but %d were read", meta.TotalNodes, n)
	}
	summary := agg.Summary()
	if summary.Root == nil {
		log.Println("WARNING: no node is its own parent; tree has no root")
	} else if summary.ExtraRoots > 0 {
		log.Printf("WARNING: %d additional root(s) found; using node %d", summary.ExtraRoots, summary.Root.ID)
	}
	if err := pr.WriteNodeSummary(w, summary, meta); err != nil {
		return err
	}
	if args.cladeFile != "" {
		if err := writeCladeFile(summary, args.cladeFile); err != nil {
			return err
		}
	}
	if args.newickFile != "" {
		if err := writeNewickFile(records, args.newickFile); err != nil {
			return err
		}
	}
	if args.plotPrefix != "" {
		xDists := make([]float64, len(records))
		for i, r := range records {
			xDists[i] = r.XDist
		}
		log.Printf("writing branch distance histogram to %s.png", args.plotPrefix)
		if err := pr.WriteDistanceHistogram(xDists, args.plotPrefix); err != nil {
			return err
		}
	}
	return nil
}

func writeCladeFile(summary *stats.Summary, path string) (err error) {
	log.Printf("writing clade counts to %s", path)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w, %s", pr.ErrWritingFile, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return pr.WriteCladeCounts(summary, f)
}

func writeNewickFile(records []*schema.Node, path string) error {
	log.Println("reconstructing tree")
	td, err := gr.Build(records)
	if err != nil {
		return fmt.Errorf("could not reconstruct tree: %w", err)
	}
	if mismatches := td.TipCountMismatches(); len(mismatches) > 0 {
		log.Printf("WARNING: %d node(s) declare a tip count that differs from the tree", len(mismatches))
		for _, m := range mismatches[:min(len(mismatches), maxReported)] {
			log.Printf("  node %d declares %d tips, %d found", m.NodeID, m.Declared, m.Found)
		}
	}
	log.Printf("writing newick tree (%d leaves) to %s", td.NLeaves, path)
	if err := os.WriteFile(path, []byte(td.Newick()+"\n"), 0644); err != nil {
		return fmt.Errorf("%w, %s", pr.ErrWritingFile, err)
	}
	return nil
}
