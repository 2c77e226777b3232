// Command classdump disassembles a method's bytecode, the classvm
// counterpart to the teacher's convert-syntax tool: convert-syntax
// rewrites old-format .mag sources in place; classdump has no source
// format to parse (§9 Non-goals excludes a class-file parser), so it
// reads a hand-built JSON fixture describing one method's bytecode body
// and prints its disassembly instead. With no fixture given, it
// disassembles the internal/fixture demo method.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/classvm/internal/fixture"
)

// methodFixture is the on-disk shape classdump reads: a method's
// identity plus its bytecode body as a hex string, the json analogue of
// the Go literals vm/*_test.go builds CompiledMethod fixtures from.
type methodFixture struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	Spec   string `json:"spec"`
	Body   string `json:"body"`
}

func main() {
	src := flag.String("src", "", "Path to a method fixture JSON file (default: the built-in demo method)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: classdump [-src fixture.json]\n\n")
		fmt.Fprintf(os.Stderr, "Disassembles one method's bytecode body.\n")
	}
	flag.Parse()

	var mf methodFixture
	if *src == "" {
		mf = methodFixture{
			Class:  fixture.DemoClassName,
			Method: fixture.DemoMethodName,
			Spec:   fixture.DemoMethodSpec,
			Body:   hex.EncodeToString(fixture.DemoBody),
		}
	} else {
		data, err := os.ReadFile(*src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *src, err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &mf); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", *src, err)
			os.Exit(1)
		}
	}

	body, err := hex.DecodeString(mf.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding body: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s.%s%s:\n", mf.Class, mf.Method, mf.Spec)
	fmt.Print(disassemble(body))
}
