// Command occ compiles a preprocessed C translation unit to OVM
// assembly text (spec.md §1/§6). It is a thin flag-parsing wrapper
// around occ.Compile, modeled on clarete-langlang/go/cmd/main.go.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/ovmcc/occ"
)

// allWarnings lists every identifier spec.md §6 recognizes for -W,
// used both to validate -W arguments and to implement -Wall.
var allWarnings = []occ.WarningID{
	occ.WarnImplicitInt,
	occ.WarnImplicitlyUnsignedLiteral,
	occ.WarnAnonymousTags,
	occ.WarnZeroLengthArray,
	occ.WarnStatementExpressions,
	occ.WarnExtraKeywords,
	occ.WarnPointerArith,
}

func main() {
	var (
		inputPath  = flag.String("input", "", "path to the preprocessed C translation unit")
		outputPath = flag.String("output", "/dev/stdout", "path to write OVM assembly text")
		optimize   = flag.Bool("O", false, "run the tree and peephole optimisers")
		astOnly    = flag.Bool("ast-only", false, "also dump the parsed AST of each function to standard output; assembly is still written to -output")
		warnFlag   = flag.String("W", "", "comma-separated warning identifiers to enable, or \"all\"")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("occ: -input is required")
	}

	opts := occ.DefaultOptions()
	opts.Optimize = *optimize
	opts.DumpAST = *astOnly
	for _, w := range parseWarnings(*warnFlag) {
		opts.Warnings[w] = true
	}

	diags, err := occ.Compile(*inputPath, *outputPath, opts)
	for _, d := range diags {
		log.Print(d.ColorString())
	}
	if err != nil {
		log.Fatalf("occ: %s", err)
	}
}

func parseWarnings(flagValue string) []occ.WarningID {
	if flagValue == "" {
		return nil
	}
	if flagValue == "all" {
		return allWarnings
	}
	var out []occ.WarningID
	for _, name := range strings.Split(flagValue, ",") {
		out = append(out, occ.WarningID(strings.TrimSpace(name)))
	}
	return out
}
