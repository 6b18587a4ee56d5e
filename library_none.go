//go:build novoaacenc || !(darwin || linux)

package aacenc

// loadBackend always fails when the native backend is compiled out.
func loadBackend() (*backend, error) {
	return nil, ErrLibraryNotFound
}

// IsAvailable reports false; libvo-aacenc support is not compiled in.
func IsAvailable() bool { return false }

// LibraryPath returns "".
func LibraryPath() string { return "" }
