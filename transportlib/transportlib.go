// Package transportlib wraps github.com/ebitengine/purego's dlopen/
// dlsym/dlclose triad behind a small handle type, so driver packages that
// bind a vendor shared library (a dynamic-library transport, or a closed
// vendor SDK shipped as a platform .so/.dll/.dylib) don't each hand-roll
// their own purego.Dlopen call.
package transportlib

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Library is an open handle to a dynamically loaded shared library.
type Library struct {
	handle uintptr
	path   string
}

// Load opens the shared library at path with RTLD_NOW|RTLD_GLOBAL, the
// same flags bt_lib_board.cpp's DLLLoader resolves its entry points with.
func Load(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("transportlib: dlopen %s: %w", path, err)
	}
	return &Library{handle: handle, path: path}, nil
}

// Symbol resolves name to its address within the library.
func (l *Library) Symbol(name string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("transportlib: dlsym %s in %s: %w", name, l.path, err)
	}
	return addr, nil
}

// Close releases the library handle.
func (l *Library) Close() error {
	return purego.Dlclose(l.handle)
}

// RegisterFunc binds fptr, a pointer to a function variable, to the
// symbol name within l. fptr's signature determines the calling
// convention purego generates; see purego.RegisterLibFunc for the
// supported parameter/return types.
func RegisterFunc(l *Library, fptr interface{}, name string) {
	purego.RegisterLibFunc(fptr, l.handle, name)
}
