package config

import "fmt"

// LoadError is returned when the entrypoint file cannot be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load configuration file: %q [%v]", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ScriptletLoadError is returned when a file-backed module cannot be read or decoded.
// Err is the underlying I/O or decode failure.
type ScriptletLoadError struct {
	Path string
	Err  error
}

func (e *ScriptletLoadError) Error() string {
	return fmt.Sprintf("cannot load scriptlet file: %q [%v]", e.Path, e.Err)
}

func (e *ScriptletLoadError) Unwrap() error {
	return e.Err
}
