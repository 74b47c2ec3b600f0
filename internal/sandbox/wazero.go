package sandbox

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
)

// wasmPageSize is the WebAssembly linear memory page size in bytes.
const wasmPageSize = 65536

// MemoryLimitPages converts the sandbox's byte ceiling into the page count
// wazero's runtime config expects, rounding up so the guest never gets
// fewer bytes than the policy granted.
func (s State) MemoryLimitPages() uint32 {
	pages := s.MemoryLimitBytes / wasmPageSize
	if s.MemoryLimitBytes%wasmPageSize != 0 {
		pages++
	}
	return uint32(pages)
}

// ApplyRuntimeConfig layers the sandbox's memory ceiling onto a base
// wazero.RuntimeConfig. Epoch-based interruption is configured separately
// by the engine, which ties it to the call's context.Context rather than
// the sandbox state.
func (s State) ApplyRuntimeConfig(cfg wazero.RuntimeConfig) wazero.RuntimeConfig {
	return cfg.WithMemoryLimitPages(s.MemoryLimitPages())
}

// ApplyModuleConfig layers preopened directories and the filtered
// environment onto a base wazero.ModuleConfig. Guest stdout/stderr are
// discarded; the component model's host functions, not WASI streams, carry
// tool results back to the caller.
//
// A recursive preopen (the policy URI carried a trailing "/**") mounts the
// whole host subtree via WithDirMount/WithReadOnlyDirMount. A non-recursive
// preopen is restricted to the directory's immediate entries: it mounts a
// topLevelFS, which rejects any name that descends into a subdirectory
// before the host ever touches it.
func (s State) ApplyModuleConfig(cfg wazero.ModuleConfig) wazero.ModuleConfig {
	cfg = cfg.WithStdout(io.Discard).WithStderr(io.Discard)

	fsConfig := wazero.NewFSConfig()
	for _, p := range s.Preopens {
		switch {
		case p.Recursive && p.Write:
			fsConfig = fsConfig.WithDirMount(p.HostPath, p.GuestPath)
		case p.Recursive:
			fsConfig = fsConfig.WithReadOnlyDirMount(p.HostPath, p.GuestPath)
		default:
			fsConfig = fsConfig.WithFSMount(newTopLevelFS(p.HostPath, p.Write), p.GuestPath)
		}
	}
	cfg = cfg.WithFSConfig(fsConfig)

	for key, value := range s.Environment {
		cfg = cfg.WithEnv(key, value)
	}

	return cfg
}

// topLevelFS backs a non-recursive fs:// grant. The guest may open and stat
// files directly inside root and list root itself, but any name containing
// a path separator is rejected with fs.ErrPermission before it reaches the
// host filesystem, so a subdirectory of root is invisible regardless of
// what it contains.
type topLevelFS struct {
	root  string
	write bool
}

func newTopLevelFS(root string, write bool) fs.FS {
	return topLevelFS{root: root, write: write}
}

func (t topLevelFS) Open(name string) (fs.File, error) {
	if name != "." && strings.ContainsRune(name, '/') {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	full := filepath.Join(t.root, name)
	if name == "." || !t.write {
		return os.Open(full)
	}
	return os.OpenFile(full, os.O_RDWR, 0)
}

func (t topLevelFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return os.ReadDir(t.root)
}

func (t topLevelFS) Stat(name string) (fs.FileInfo, error) {
	if name != "." && strings.ContainsRune(name, '/') {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrPermission}
	}
	return os.Stat(filepath.Join(t.root, name))
}
