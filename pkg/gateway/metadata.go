package gateway

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
)

// Metadata describes a filesystem entry without exposing OS-specific
// detail. Created is nil where the platform or filesystem does not
// record a birth time.
type Metadata struct {
	Path     string     `json:"path"`
	Kind     string     `json:"kind"`
	Size     int64      `json:"size"`
	Created  *time.Time `json:"created,omitempty"`
	Modified time.Time  `json:"modified"`
	ReadOnly bool       `json:"read_only"`
}

// Entry kinds reported by GetMetadata.
const (
	KindFile      = "file"
	KindDirectory = "directory"
	KindSymlink   = "symlink"
	KindOther     = "other"
)

// GetMetadata reports size, timestamps and kind for a path. The entry is
// stat'd without following a final symlink, so a symlink is reported as
// one rather than as its target.
func (g *Gateway) GetMetadata(ctx context.Context, raw string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	rp, err := g.validate(raw, policy.ClassRead, false, policy.SizeUnknown)
	if err != nil {
		return Metadata{}, err
	}

	info, err := os.Lstat(rp.Path)
	if err != nil {
		return Metadata{}, operr.Sanitize(raw, err)
	}

	kind := KindOther
	switch {
	case info.Mode().IsRegular():
		kind = KindFile
	case info.IsDir():
		kind = KindDirectory
	case info.Mode()&fs.ModeSymlink != 0:
		kind = KindSymlink
	}

	size := info.Size()
	if kind != KindFile {
		size = 0
	}

	readonly := g.policy.IsReadOnly() || info.Mode().Perm()&0200 == 0

	return Metadata{
		Path:     rp.Path,
		Kind:     kind,
		Size:     size,
		Created:  birthTime(rp.Path),
		Modified: info.ModTime(),
		ReadOnly: readonly,
	}, nil
}

// Exists reports whether a path names an existing entry. Policy denials
// propagate as errors rather than being folded into "false": a caller is
// not told whether a forbidden path exists.
func (g *Gateway) Exists(ctx context.Context, raw string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rp, err := g.validate(raw, policy.ClassRead, false, policy.SizeUnknown)
	if err != nil {
		return false, err
	}
	if !rp.Exists {
		return false, nil
	}

	if _, err := os.Lstat(rp.Path); err != nil {
		if operr.IsKind(operr.Sanitize(raw, err), operr.KindNotFound) {
			return false, nil
		}
		return false, operr.Sanitize(raw, err)
	}
	return true, nil
}
