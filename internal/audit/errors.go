package audit

import "fmt"

// UnreadableFileError reports that a file's content could not be hashed
// (permissions, vanished mid-scan, I/O error). It is recovered locally:
// the file is skipped and counted, and the run continues.
type UnreadableFileError struct {
	Path string
	Err  error
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("unreadable file %s: %v", e.Path, e.Err)
}

func (e *UnreadableFileError) Unwrap() error { return e.Err }

// InvalidTargetError reports that a requested root is not a usable
// directory. The operation aborts without mutating the store.
type InvalidTargetError struct {
	Path string
	Err  error
}

func (e *InvalidTargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid target %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid target %s: not a directory", e.Path)
}

func (e *InvalidTargetError) Unwrap() error { return e.Err }
