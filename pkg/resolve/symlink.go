package resolve

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/filegate/filegate/pkg/operr"
)

// VerifyNoSymlinks checks every component of the raw path, ancestors
// included, for symlink presence.
//
// Checking only the final canonical result is not enough when symlinks are
// forbidden: a symlinked intermediate directory would silently leak access
// to its target because canonicalization erases it. Each existing prefix of
// the absolute path is lstat'd individually; the walk stops at the first
// missing component, which is fine for write targets that do not exist yet
// (there is nothing left on disk to check).
func VerifyNoSymlinks(raw string) error {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return operr.Wrap(operr.KindInvalidPath, "path cannot be made absolute", err)
	}

	sep := string(filepath.Separator)
	prefix := sep
	for _, component := range strings.Split(strings.Trim(abs, sep), sep) {
		if component == "" {
			continue
		}
		prefix = filepath.Join(prefix, component)

		info, err := os.Lstat(prefix)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return operr.Sanitize(raw, err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return operr.Newf(operr.KindSymlinkNotAllowed,
				"path component %q is a symbolic link", component)
		}
	}
	return nil
}
