//go:build linux

package gateway

import (
	"time"

	"golang.org/x/sys/unix"
)

// birthTime reports the entry's creation time via statx. Returns nil
// when the filesystem does not record a birth time.
func birthTime(path string) *time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 {
		return nil
	}
	t := time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	return &t
}
