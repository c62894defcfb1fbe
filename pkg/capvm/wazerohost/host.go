// Package wazerohost runs a configuration module under wazero and collects
// the program it produces.
package wazerohost

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Names of the host module, its imports and the guest entry points.
const (
	HostModule  = "wah_wasi"
	FuncLength  = "length"
	FuncGet     = "get"
	FuncPut     = "put"
	ExportEntry = "configure"
	ExportInit  = "_initialize"
)

var (
	// ErrNoEntry is returned when the guest does not export configure.
	ErrNoEntry = errors.New("configuration module does not export " + ExportEntry)

	// ErrNoProgram is returned when configure returns without calling put.
	ErrNoProgram = errors.New("configuration module produced no program")
)

// MemoryError reports a guest pointer outside its linear memory.
type MemoryError struct {
	Func   string
	Offset uint32
	Len    uint32
}

// Error implements error.
func (e *MemoryError) Error() string {
	return fmt.Sprintf("%s.%s: range [%d, +%d) is outside guest memory", HostModule, e.Func, e.Offset, e.Len)
}

// Option configures Run.
type Option func(*options)

type options struct {
	stdout io.Writer
	stderr io.Writer
}

// WithStdout forwards guest stdout.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithStderr forwards guest stderr.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// session is the host side of one configure call.
type session struct {
	config  []byte
	program []byte
	put     bool
	err     error
}

func (s *session) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *session) length(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(len(s.config)))
}

func (s *session) get(_ context.Context, mod api.Module, stack []uint64) {
	ptr := api.DecodeU32(stack[0])
	if !mod.Memory().Write(ptr, s.config) {
		s.fail(&MemoryError{Func: FuncGet, Offset: ptr, Len: uint32(len(s.config))})
	}
}

func (s *session) putProgram(_ context.Context, mod api.Module, stack []uint64) {
	ptr, size := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	buf, ok := mod.Memory().Read(ptr, size)
	if !ok {
		s.fail(&MemoryError{Func: FuncPut, Offset: ptr, Len: size})
		return
	}
	s.program = append([]byte(nil), buf...)
	s.put = true
}

// Run instantiates guest with WASI and the wah_wasi host module, calls its
// configure export with config available through the imports, and returns
// the program handed to put.
func Run(ctx context.Context, guest, config []byte, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	sess := &session{config: config}

	i32 := api.ValueTypeI32
	_, err := rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(sess.length), nil, []api.ValueType{i32}).
		Export(FuncLength).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(sess.get), []api.ValueType{i32}, nil).
		Export(FuncGet).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(sess.putProgram), []api.ValueType{i32, i32}, nil).
		Export(FuncPut).
		Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", HostModule, err)
	}

	compiled, err := rt.CompileModule(ctx, guest)
	if err != nil {
		return nil, fmt.Errorf("compile configuration module: %w", err)
	}

	exports := compiled.ExportedFunctions()
	if _, ok := exports[ExportEntry]; !ok {
		return nil, ErrNoEntry
	}

	cfg := wazero.NewModuleConfig().WithName("")
	if _, ok := exports[ExportInit]; ok {
		cfg = cfg.WithStartFunctions(ExportInit)
	} else {
		cfg = cfg.WithStartFunctions()
	}
	if o.stdout != nil {
		cfg = cfg.WithStdout(o.stdout)
	}
	if o.stderr != nil {
		cfg = cfg.WithStderr(o.stderr)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate configuration module: %w", err)
	}
	defer mod.Close(ctx)

	if _, err := mod.ExportedFunction(ExportEntry).Call(ctx); err != nil {
		return nil, fmt.Errorf("call %s: %w", ExportEntry, err)
	}
	if sess.err != nil {
		return nil, sess.err
	}
	if !sess.put {
		return nil, ErrNoProgram
	}
	return sess.program, nil
}
