// Package config handles classvm.toml project configuration, the
// replacement for the teacher's maggie.toml (manifest package): a
// Load(dir)/FindAndLoad(startDir) pair over a project-root config file,
// following manifest.Manifest's own shape one-for-one. Unlike the
// teacher, the TOML is validated against a CUE schema
// (internal/config/schema.cue) before being unmarshalled, catching a
// malformed classpath root or native library path before it reaches the
// interpreter.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuetoml "cuelang.org/go/encoding/toml"

	"github.com/BurntSushi/toml"
)

// VM configures per-thread interpreter limits.
type VM struct {
	StackSlots     int      `toml:"stackSlots"`
	NativeLibPaths []string `toml:"nativeLibPaths"`
}

// Classpath configures where classes are resolved from.
type Classpath struct {
	Roots []string `toml:"roots"`
}

// Profiler configures the optional DuckDB opcode-hit recorder.
type Profiler struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"dbPath"`
}

// ClassCache configures the sqlite-backed class/method descriptor cache.
type ClassCache struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"dbPath"`
}

// Config is the unmarshalled, schema-validated contents of classvm.toml.
type Config struct {
	VM         VM         `toml:"vm"`
	Classpath  Classpath  `toml:"classpath"`
	Profiler   Profiler   `toml:"profiler"`
	ClassCache ClassCache `toml:"classcache"`

	// Dir is the directory containing classvm.toml (set at load time).
	Dir string `toml:"-"`
}

// fileName is classvm's project config file, the classvm.toml analogue of
// the teacher's maggie.toml.
const fileName = "classvm.toml"

// Load parses and validates a classvm.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := validate(path, data); err != nil {
		return nil, fmt.Errorf("%s fails schema validation: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if c.Classpath.Roots == nil {
		c.Classpath.Roots = []string{"classes"}
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a classvm.toml file, then
// loads and validates it. Returns nil, nil if no config file is found,
// matching manifest.FindAndLoad's "absent manifest is not an error"
// convention.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, fileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// schemaSrc holds schema.cue, read relative to this source file, so
// validation works regardless of the caller's working directory.
var schemaSrc = mustReadSchema()

func mustReadSchema() []byte {
	_, file, _, _ := runtime.Caller(0)
	data, err := os.ReadFile(filepath.Join(filepath.Dir(file), "schema.cue"))
	if err != nil {
		panic("config: cannot read embedded schema.cue: " + err.Error())
	}
	return data
}

// validate unifies the TOML document against #Config in schema.cue and
// reports any field that fails to validate as concrete.
func validate(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return fmt.Errorf("compiling schema.cue: %w", schema.Err())
	}

	expr, err := cuetoml.NewDecoder(path, bytes.NewReader(data)).Decode()
	if err != nil {
		return fmt.Errorf("decoding toml for validation: %w", err)
	}
	doc := ctx.BuildExpr(expr)
	if doc.Err() != nil {
		return fmt.Errorf("building toml document: %w", doc.Err())
	}

	unified := schema.Unify(doc)
	return unified.Validate(cue.Concrete(true))
}
