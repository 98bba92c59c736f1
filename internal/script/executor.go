// Package script runs a JavaScript file that computes template variables.
//
// The script sees an env object:
//
//	env.set("IMAGE_TAG", env.get("GIT_SHA").substring(0, 8))
//	env.set("PASSWORD_HASH", sha256(env.get("PASSWORD")))
//
// env.get falls back to the lookup the executor was created with, so
// scripts can derive values from the process environment or env files.
package script

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja"

	"github.com/zipkero/apply-env/internal/template"
)

// ErrScript is returned when a script fails to load or run.
var ErrScript = errors.New("script execution failed")

// Executor holds a JavaScript runtime and the variables its scripts set.
type Executor struct {
	vm   *goja.Runtime
	base template.LookupFunc
	vars map[string]string
}

// NewExecutor creates an executor whose env.get falls back to base.
func NewExecutor(base template.LookupFunc) *Executor {
	vm := goja.New()
	e := &Executor{
		vm:   vm,
		base: base,
		vars: make(map[string]string),
	}

	envObj := vm.NewObject()
	_ = envObj.Set("set", e.envSet)
	_ = envObj.Set("get", e.envGet)
	_ = vm.Set("env", envObj)

	_ = vm.Set("sha256", sha256Hex)
	_ = vm.Set("sha512", sha512Hex)
	_ = vm.Set("base64", base64Encode)

	return e
}

func (e *Executor) envSet(key string, value goja.Value) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		e.vars[key] = ""
		return
	}
	e.vars[key] = value.String()
}

func (e *Executor) envGet(key string) goja.Value {
	if v, ok := e.Lookup(key); ok {
		return e.vm.ToValue(v)
	}
	return goja.Undefined()
}

func sha256Hex(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func sha512Hex(data string) string {
	hash := sha512.Sum512([]byte(data))
	return hex.EncodeToString(hash[:])
}

func base64Encode(data string) string {
	return base64.StdEncoding.EncodeToString([]byte(data))
}

// Execute runs src. An empty script is a no-op.
func (e *Executor) Execute(src string) error {
	return e.run("script", src)
}

// ExecuteFile reads and runs the script at path.
func (e *Executor) ExecuteFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}
	return e.run(path, string(data))
}

func (e *Executor) run(name, src string) error {
	if src == "" {
		return nil
	}
	if _, err := e.vm.RunScript(name, src); err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}
	return nil
}

// Lookup returns a value set by a script, or asks the base lookup.
func (e *Executor) Lookup(name string) (string, bool) {
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	if e.base == nil {
		return "", false
	}
	return e.base(name)
}

// Vars returns a copy of the variables set by scripts so far.
func (e *Executor) Vars() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}
