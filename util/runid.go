package util

import (
	"path"

	"github.com/google/uuid"
)

// RunDir returns a fresh run directory under base, tagged with a unique
// identifier so repeated runs never overwrite each other's checkpoints.
func RunDir(base string) string {
	return path.Join(base, uuid.NewString())
}
