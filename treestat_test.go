package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gr "github.com/jsdoublel/treestat/internal/graphs"
	pr "github.com/jsdoublel/treestat/internal/prep"
	"github.com/jsdoublel/treestat/internal/stats"
)

const testdata = "internal/prep/testdata"

func TestRun(t *testing.T) {
	testCases := []struct {
		name        string
		file        string
		nodeSection bool
		expectedErr error
	}{
		{
			name:        "basic",
			file:        "tree.jsonl",
			nodeSection: true,
		},
		{
			name:        "no nodes",
			file:        "metaonly.jsonl",
			expectedErr: stats.ErrNoNodes,
		},
		{
			name:        "malformed node",
			file:        "badnode.jsonl",
			expectedErr: pr.ErrInvalidFormat,
		},
		{
			name:        "empty file",
			file:        "empty.jsonl",
			expectedErr: pr.ErrInvalidFile,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := run(args{inputFile: filepath.Join(testdata, test.file)}, &buf)
			switch {
			case !errors.Is(err, test.expectedErr):
				t.Fatalf("Failed with unexpected error %+v", err)
			case err != nil:
				t.Logf("%s", err)
			}
			assert.Equal(t, test.nodeSection, bytes.Contains(buf.Bytes(), []byte("nodes processed:")))
		})
	}
}

func TestRunMalformedNodeKeepsMetadataSummary(t *testing.T) {
	var buf bytes.Buffer
	err := run(args{inputFile: filepath.Join(testdata, "badnode.jsonl")}, &buf)
	require.Error(t, err)
	assert.Equal(t, "version: 2.0\n"+
		"declared nodes: 5\n"+
		"declared tips: 3\n"+
		"genes: 2\n"+
		"mutations: 4 (aa: 2, nt: 2)\n", buf.String())
}

func TestRunRawAndGzipIdentical(t *testing.T) {
	var raw, gz bytes.Buffer
	require.NoError(t, run(args{inputFile: filepath.Join(testdata, "tree.jsonl")}, &raw))
	require.NoError(t, run(args{inputFile: filepath.Join(testdata, "tree.jsonl.gz")}, &gz))
	assert.Equal(t, raw.Bytes(), gz.Bytes())
}

func TestRunOutputs(t *testing.T) {
	dir := t.TempDir()
	a := args{
		inputFile:  filepath.Join(testdata, "tree.jsonl.gz"),
		newickFile: filepath.Join(dir, "tree.nwk"),
		plotPrefix: filepath.Join(dir, "dist"),
		cladeFile:  filepath.Join(dir, "clades.csv"),
	}
	var buf bytes.Buffer
	require.NoError(t, run(a, &buf))
	nwk, err := os.ReadFile(a.newickFile)
	require.NoError(t, err)
	assert.Equal(t, "((MW000001:1,MW000002:0.75)node_2:0.5,MW000003:0.75)node_1;\n", string(nwk))
	csv, err := os.ReadFile(a.cladeFile)
	require.NoError(t, err)
	assert.Contains(t, string(csv), "pango,B.1,2\n")
	_, err = os.Stat(a.plotPrefix + ".png")
	assert.NoError(t, err)
}

func TestRunNewickWithoutRoot(t *testing.T) {
	dir := t.TempDir()
	a := args{
		inputFile:  filepath.Join(testdata, "noroot.jsonl"),
		newickFile: filepath.Join(dir, "tree.nwk"),
	}
	var buf bytes.Buffer
	err := run(a, &buf)
	assert.True(t, errors.Is(err, gr.ErrNoRoot), "unexpected error %v", err)
	assert.Contains(t, buf.String(), "root: none\n")
}

func TestParseFlags(t *testing.T) {
	testCases := []struct {
		name        string
		argv        []string
		expected    args
		cmd         command
		expectedErr error
	}{
		{
			name:     "input only",
			argv:     []string{"tree.jsonl"},
			expected: args{inputFile: "tree.jsonl"},
		},
		{
			name: "all outputs",
			argv: []string{"-n", "t.nwk", "-p", "dist", "-c", "c.csv", "tree.jsonl.gz"},
			expected: args{
				inputFile:  "tree.jsonl.gz",
				newickFile: "t.nwk",
				plotPrefix: "dist",
				cladeFile:  "c.csv",
			},
		},
		{
			name:     "extra positional arguments ignored",
			argv:     []string{"first.jsonl", "second.jsonl"},
			expected: args{inputFile: "first.jsonl"},
		},
		{
			name: "help",
			argv: []string{"-h"},
			cmd:  helpCommand,
		},
		{
			name: "version wins over missing input",
			argv: []string{"-v"},
			cmd:  versionCommand,
		},
		{
			name:        "no input",
			argv:        []string{"-n", "t.nwk"},
			expectedErr: errNoInput,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			fs := flag.NewFlagSet("treestat", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			a, cmd, err := parseFlags(fs, test.argv)
			if test.expectedErr != nil {
				assert.True(t, errors.Is(err, test.expectedErr), "unexpected error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.cmd, cmd)
			assert.Equal(t, test.expected, a)
		})
	}
}

func TestParseFlagsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("treestat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, _, err := parseFlags(fs, []string{"-x", "tree.jsonl"})
	assert.Error(t, err)
}

// parseArgs exits, so it runs in a child process started by TestParseArgsExit
func TestMain(m *testing.M) {
	if argv, ok := os.LookupEnv("TREESTAT_ARGV"); ok {
		os.Args = append([]string{"treestat"}, strings.Fields(argv)...)
		parseArgs()
		os.Exit(3)
	}
	os.Exit(m.Run())
}

func TestParseArgsExit(t *testing.T) {
	testCases := []struct {
		name   string
		argv   string
		code   int
		output string
	}{
		{name: "no input", argv: "", code: 1, output: "one positional argument required: <input>\nusage: treestat"},
		{name: "help", argv: "-h", code: 0, output: "usage: treestat"},
		{name: "version", argv: "-v", code: 0, output: "treestat version " + Version},
		{name: "parsed", argv: "tree.jsonl", code: 3},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			cmd := exec.Command(os.Args[0])
			cmd.Env = append(os.Environ(), "TREESTAT_ARGV="+test.argv)
			out, err := cmd.Output()
			code := 0
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, test.code, code)
			assert.Contains(t, string(out), test.output)
		})
	}
}
