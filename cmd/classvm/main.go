// Command classvm runs a class's main method, the classvm counterpart
// to the teacher's mag: where mag loads an embedded Smalltalk image and
// compiles .mag source paths before running -m, classvm has no
// class-file parser to load real classes with (§9 Non-goals), so it
// runs the internal/fixture demo class instead — enough to exercise the
// Processor Facade end to end from a command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/classvm/interp"
	"github.com/chazu/classvm/internal/fixture"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	mainEntry := flag.String("m", fixture.DemoClassName+"."+fixture.DemoMethodName, "Class.method to run")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: classvm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a class's main method against the fixture demo class (no class-file loader is wired in).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		commonlog.SetMaxLevel(commonlog.Debug)
	}

	class, collaborators := fixture.Build()
	machine := interp.NewMachine(collaborators, nil)

	thread := machine.NewThread()
	defer machine.DropThread(thread)
	machine.BindCurrentGoroutine(thread)
	defer machine.UnbindCurrentGoroutine()

	if *verbose {
		fmt.Printf("Invoking %s\n", *mainEntry)
	}

	className, methodName := class.Name, fixture.DemoMethodName
	if i := strings.LastIndex(*mainEntry, "."); i >= 0 {
		className, methodName = (*mainEntry)[:i], (*mainEntry)[i+1:]
	}
	result, err := thread.InvokeSymbolic(interp.NullRef, className, methodName, fixture.DemoMethodSpec, interp.NullRef, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if thread.Pending != interp.NullRef {
		fmt.Fprintf(os.Stderr, "Uncaught exception: ref %d\n", thread.Pending)
		os.Exit(1)
	}
	if len(result) == 1 {
		fmt.Printf("%d\n", int32(uint32(result[0].Value)))
		os.Exit(int(int32(uint32(result[0].Value))))
	}
	os.Exit(0)
}
