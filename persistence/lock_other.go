//go:build !unix

package persistence

import "os"

// Without flock, rebuilders in separate processes are not serialized; the
// atomic rename still keeps readers consistent.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
