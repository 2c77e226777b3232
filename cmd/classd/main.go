// Command classd is a long-running invocation daemon, the classvm
// counterpart to the teacher's tt: tt multiplexes dlopen'd Smalltalk
// plugins behind a cgo trampoline and a stdin/Unix-socket JSON
// protocol; classd has no plugin system (native methods are resolved
// through the nativebridge package, not dlopen), so it keeps tt's
// socket/stdio dual-mode shape and management flags but serves a single
// in-process Machine over the Connect facade in server/ instead.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/chazu/classvm/classcache"
	"github.com/chazu/classvm/interp"
	"github.com/chazu/classvm/internal/config"
	"github.com/chazu/classvm/internal/fixture"
	"github.com/chazu/classvm/profiler"
	"github.com/chazu/classvm/server"
)

var (
	configDir  = flag.String("config", ".", "Directory to search upward from for classvm.toml")
	addr       = flag.String("addr", "", "HTTP address to serve the Connect facade on (enables network mode; default: stdio mode)")
	socketPath = flag.String("socket", "", "Unix socket path to serve the Connect facade on (alternative to -addr)")
	healthAddr = flag.String("health-addr", "", "Address to serve a standard gRPC health-check service on (optional, any mode)")
	debug      = flag.Bool("debug", false, "Enable debug output to stderr")
	killDaemon = flag.Bool("kill", false, "Kill the running daemon (by pidfile next to -socket) and exit")
	showStatus = flag.Bool("status", false, "Show daemon status (running/stopped, PID) and exit")
)

func main() {
	flag.Parse()

	pidFile := ""
	if *socketPath != "" {
		pidFile = *socketPath + ".pid"
	}

	if *showStatus {
		handleStatus(pidFile)
		return
	}
	if *killDaemon {
		handleKill(pidFile)
		return
	}

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "classd: loading classvm.toml: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		// No classvm.toml found anywhere above -config: run with defaults,
		// matching manifest.FindAndLoad's "absent manifest is not an
		// error" convention.
		cfg = &config.Config{Classpath: config.Classpath{Roots: []string{"classes"}}}
	}
	if *debug {
		fmt.Fprintf(os.Stderr, "classd: config dir %s, %d classpath roots\n", cfg.Dir, len(cfg.Classpath.Roots))
	}

	ctx := context.Background()

	health := server.NewHealthServer()
	health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	var cache *classcache.Cache
	if cfg.ClassCache.Enabled {
		cache, err = classcache.Open(ctx, cfg.ClassCache.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "classd: opening class cache: %v\n", err)
			os.Exit(1)
		}
		defer cache.Close()
	}

	var rec *profiler.Recorder
	if cfg.Profiler.Enabled {
		rec, err = profiler.Open(ctx, cfg.Profiler.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "classd: opening profiler: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			rec.Flush(ctx)
			rec.Close()
		}()
	}

	if *healthAddr != "" {
		l, err := net.Listen("tcp", *healthAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "classd: health listen on %s: %v\n", *healthAddr, err)
			os.Exit(1)
		}
		go func() {
			if err := server.ServeHealth(l, health); err != nil && *debug {
				fmt.Fprintf(os.Stderr, "classd: health server: %v\n", err)
			}
		}()
	}
	health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	// No real class-file loader is wired in (§9 Non-goals); the demo
	// fixture class stands in for "whatever classpath.roots names."
	_, collaborators := fixture.Build()
	machine := interp.NewMachine(collaborators, nil)
	machine.StackSlots = cfg.VM.StackSlots
	if machine.StackSlots == 0 {
		machine.StackSlots = interp.DefaultStackSlots
	}
	if rec != nil {
		machine.OnOpcode = rec.Hook
	}

	srv := server.New(machine)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		if *debug {
			fmt.Fprintf(os.Stderr, "classd: shutting down on signal\n")
		}
		os.Exit(0)
	}()

	switch {
	case *addr != "":
		if pf := pidFile; pf == "" {
			writePidFile(*addr + ".pid")
			defer os.Remove(*addr + ".pid")
		}
		if err := srv.ListenAndServe(*addr); err != nil {
			fmt.Fprintf(os.Stderr, "classd: %v\n", err)
			os.Exit(1)
		}
	case *socketPath != "":
		runSocket(*socketPath, srv)
	default:
		runStdio(machine)
	}
}

func handleStatus(pidFile string) {
	if pidFile == "" {
		fmt.Println("classd: no -socket given, nothing to check")
		return
	}
	data, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Println("classd: not running")
		return
	}
	fmt.Printf("classd: running, pid %s\n", data)
}

func handleKill(pidFile string) {
	if pidFile == "" {
		fmt.Fprintln(os.Stderr, "classd: -kill requires -socket")
		os.Exit(1)
	}
	data, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Println("classd: not running")
		return
	}
	var pid int
	fmt.Sscanf(string(data), "%d", &pid)
	if pid == 0 {
		return
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintf(os.Stderr, "classd: kill %d: %v\n", pid, err)
		os.Exit(1)
	}
	fmt.Printf("classd: killed pid %d\n", pid)
}

func writePidFile(path string) {
	os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// runSocket serves the Connect facade over a Unix domain socket, tt's
// socket mode ported from its raw JSON request/response framing to
// net/http over the same listener.
func runSocket(path string, srv *server.Server) {
	os.Remove(path)
	listener, err := net.Listen("unix", path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "classd: listen on %s: %v\n", path, err)
		os.Exit(1)
	}
	defer listener.Close()
	defer os.Remove(path)
	writePidFile(path + ".pid")
	defer os.Remove(path + ".pid")

	if *debug {
		fmt.Fprintf(os.Stderr, "classd: listening on unix socket %s\n", path)
	}

	if err := srv.Serve(listener); err != nil {
		fmt.Fprintf(os.Stderr, "classd: %v\n", err)
		os.Exit(1)
	}
}

// runStdio processes newline-delimited InvokeRequest JSON from stdin
// and writes InvokeResponse JSON to stdout, one line per request —
// tt's RunStdin mode, minus the cgo dispatch-function bridge.
func runStdio(machine *interp.Machine) {
	threads := map[uint64]*interp.Thread{}
	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))
	enc := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var req server.InvokeRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			enc.Encode(server.InvokeResponse{})
			continue
		}
		t, ok := threads[req.ThreadID]
		if !ok {
			t = machine.NewThread()
			threads[req.ThreadID] = t
		}
		machine.BindCurrentGoroutine(t)
		args := make([]interp.Slot, len(req.Args))
		for i, a := range req.Args {
			args[i] = interp.Slot{Tag: interp.Tag(a.Tag), Value: a.Value}
		}
		result, err := t.InvokeSymbolic(interp.Ref(req.Loader), req.ClassName, req.MethodName, req.MethodSpec, interp.Ref(req.This), args)
		machine.UnbindCurrentGoroutine()

		resp := server.InvokeResponse{}
		if err != nil {
			if *debug {
				fmt.Fprintf(os.Stderr, "classd: invoke error: %v\n", err)
			}
		} else if t.Pending != interp.NullRef {
			resp.Exception = true
			resp.ExceptionRef = uint64(t.Pending)
		} else {
			resp.Result = make([]server.Slot, len(result))
			for i, s := range result {
				resp.Result[i] = server.Slot{Tag: uint32(s.Tag), Value: s.Value}
			}
		}
		enc.Encode(resp)
	}
}
