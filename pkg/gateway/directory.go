package gateway

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
	"github.com/filegate/filegate/pkg/resolve"
)

// DirEntry is one directory listing result. Name is the path relative to
// the listed directory, so recursive listings stay unambiguous.
type DirEntry struct {
	Name      string `json:"name"`
	IsFile    bool   `json:"is_file"`
	IsDir     bool   `json:"is_dir"`
	IsSymlink bool   `json:"is_symlink"`
	Size      int64  `json:"size"`
}

// ListDirectory enumerates a directory through an opened directory handle.
//
// Every entry passes the per-entry policy filter (hidden, extension,
// symlink, path rules) before inclusion; recursion happens only when
// requested and never descends into symlinked directories.
func (g *Gateway) ListDirectory(ctx context.Context, raw string, recursive bool) ([]DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rp, err := g.validate(raw, policy.ClassRead, false, policy.SizeUnknown)
	if err != nil {
		return nil, err
	}

	out := make([]DirEntry, 0, 16)
	err = g.walkEntries(ctx, rp, raw, recursive, func(rel string, entry fs.DirEntry) error {
		info, err := entry.Info()
		if err != nil {
			// The entry vanished between readdir and stat; skip it.
			return nil
		}
		size := info.Size()
		if !info.Mode().IsRegular() {
			size = 0
		}
		out = append(out, DirEntry{
			Name:      rel,
			IsFile:    info.Mode().IsRegular(),
			IsDir:     info.IsDir(),
			IsSymlink: info.Mode()&fs.ModeSymlink != 0,
			Size:      size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDirectory creates a directory. With recursive set, missing parents
// are created and an already-existing directory is not an error, so the
// operation is idempotent. Without it, the parent must exist and an
// existing target fails.
func (g *Gateway) CreateDirectory(ctx context.Context, raw string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rp, err := g.validate(raw, policy.ClassWrite, false, policy.SizeUnknown)
	if err != nil {
		return err
	}

	if recursive {
		if err := os.MkdirAll(rp.Path, 0755); err != nil {
			return operr.Sanitize(raw, err)
		}
		return nil
	}
	if err := os.Mkdir(rp.Path, 0755); err != nil {
		return operr.Sanitize(raw, err)
	}
	return nil
}

// RemoveDirectory removes a directory. Without recursive, a non-empty
// directory fails atomically at the OS level: nothing inside it is
// deleted. With recursive, the whole tree goes.
func (g *Gateway) RemoveDirectory(ctx context.Context, raw string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rp, err := g.validate(raw, policy.ClassWrite, false, policy.SizeUnknown)
	if err != nil {
		return err
	}

	info, err := os.Lstat(rp.Path)
	if err != nil {
		return operr.Sanitize(raw, err)
	}
	if !info.IsDir() {
		return operr.New(operr.KindNotADirectory, "target is not a directory")
	}

	if recursive {
		if err := os.RemoveAll(rp.Path); err != nil {
			return operr.Sanitize(raw, err)
		}
		return nil
	}
	if err := os.Remove(rp.Path); err != nil {
		return operr.Sanitize(raw, err)
	}
	return nil
}

// walkEntries opens base as a directory handle and feeds every policy-
// passing entry to fn, recursing into plain subdirectories when asked.
// rel paths are relative to base. fn may return errStopWalk to end the
// walk early without error.
func (g *Gateway) walkEntries(ctx context.Context, rp resolve.ResolvedPath, raw string, recursive bool, fn walkFunc) error {
	err := g.walkInto(ctx, rp.Path, "", raw, recursive, fn)
	if errors.Is(err, errStopWalk) {
		return nil
	}
	return err
}

type walkFunc func(rel string, entry fs.DirEntry) error

// errStopWalk is the sentinel a walkFunc returns to end enumeration early,
// e.g. when a search hit its maximum result count.
var errStopWalk = errors.New("stop walk")

func (g *Gateway) walkInto(ctx context.Context, dir, rel, raw string, recursive bool, fn walkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d, err := g.open(resolve.ResolvedPath{Path: dir, Exists: true}, os.O_RDONLY, 0, raw)
	if err != nil {
		return err
	}
	st, err := d.Stat()
	if err != nil {
		d.Close()
		return operr.Sanitize(raw, err)
	}
	if !st.IsDir() {
		d.Close()
		return operr.New(operr.KindNotADirectory, "target is not a directory")
	}
	entries, err := d.ReadDir(-1)
	d.Close()
	if err != nil {
		return operr.Sanitize(raw, err)
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if !g.entryAllowed(full, entry) {
			continue
		}
		entryRel := entry.Name()
		if rel != "" {
			entryRel = filepath.Join(rel, entry.Name())
		}
		if err := fn(entryRel, entry); err != nil {
			return err
		}
		if recursive && entry.IsDir() && entry.Type()&fs.ModeSymlink == 0 {
			if err := g.walkInto(ctx, full, entryRel, raw, true, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// entryAllowed is the per-entry filter shared by list and both search
// operations: an entry excluded here is never matched against a pattern
// and never appears in any result.
func (g *Gateway) entryAllowed(full string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink != 0 && !g.policy.AllowSymlinks() {
		return false
	}
	req := policy.Request{
		Path:   full,
		Class:  policy.ClassRead,
		FileOp: entry.Type().IsRegular(),
		Size:   policy.SizeUnknown,
	}
	return g.policy.Evaluate(req) == nil
}
