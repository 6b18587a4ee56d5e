//go:build (darwin || linux) && !cgo && !novoaacenc

// Library discovery for the purego backend.

package aacenc

import (
	"os"
	"path/filepath"
	"runtime"
)

// Environment variables consulted before the built-in search paths.
const (
	envLibPath    = "VOAACENC_LIB_PATH"   // Exact path to the shared library
	envSDKLibPath = "STREAM_SDK_LIB_PATH" // Directory containing the shared library
)

// libraryName returns the platform file name of libvo-aacenc.
func libraryName() string {
	if runtime.GOOS == "darwin" {
		return "libvo-aacenc.dylib"
	}
	return "libvo-aacenc.so"
}

// libraryPaths lists candidate locations in search order.
func libraryPaths() []string {
	var paths []string
	libName := libraryName()

	if envPath := os.Getenv(envLibPath); envPath != "" {
		paths = append(paths, envPath)
	}
	if envPath := os.Getenv(envSDKLibPath); envPath != "" {
		paths = append(paths, filepath.Join(envPath, libName))
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}

	if root := findSourceRoot(); root != "" {
		paths = append(paths, filepath.Join(root, "build", libName))
	}
	if root := findModuleRoot(); root != "" {
		paths = append(paths, filepath.Join(root, "build", libName))
	}

	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			"libvo-aacenc.0.dylib",
			"/usr/local/lib/libvo-aacenc.dylib",
			"/opt/homebrew/lib/libvo-aacenc.dylib",
			"/opt/homebrew/lib/libvo-aacenc.0.dylib",
		)
	case "linux":
		// Distributions usually ship only the versioned runtime name.
		paths = append(paths,
			"libvo-aacenc.so.0",
			"libvo-aacenc.so",
			"/usr/local/lib/libvo-aacenc.so",
			"/usr/lib/libvo-aacenc.so.0",
			"/usr/lib/x86_64-linux-gnu/libvo-aacenc.so.0",
			"/usr/lib/aarch64-linux-gnu/libvo-aacenc.so.0",
		)
	}

	return paths
}

// findSourceRoot returns the directory of this source file, which is the
// module root when running from a checkout.
func findSourceRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return filepath.Dir(file)
}

// findModuleRoot walks up the directory tree from the current working directory
// to find the module root (directory containing go.mod).
func findModuleRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
