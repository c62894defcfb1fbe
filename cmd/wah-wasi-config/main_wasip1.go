//go:build wasip1

// Command wah-wasi-config is the configuration module loaded by the boot
// interpreter. Build it as a reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared ./cmd/wah-wasi-config
package main

import (
	"unsafe"

	"github.com/yaklabco/wahpolyglot/pkg/capvm"
)

//go:wasmimport wah_wasi length
func hostLength() int32

//go:wasmimport wah_wasi get
func hostGet(ptr unsafe.Pointer)

//go:wasmimport wah_wasi put
func hostPut(ptr unsafe.Pointer, size int32)

type host struct{}

func (host) Length() int { return int(hostLength()) }

func (host) Get(dst []byte) {
	if len(dst) == 0 {
		return
	}
	hostGet(unsafe.Pointer(unsafe.SliceData(dst)))
}

func (host) Put(program []byte) {
	hostPut(unsafe.Pointer(unsafe.SliceData(program)), int32(len(program)))
}

//go:wasmexport configure
func configure() {
	capvm.Configure(host{})
}

func main() {}
