package gateway

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
)

// DeleteFile removes a single regular file.
func (g *Gateway) DeleteFile(ctx context.Context, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rp, err := g.validate(raw, policy.ClassWrite, true, policy.SizeUnknown)
	if err != nil {
		return err
	}

	info, err := os.Lstat(rp.Path)
	if err != nil {
		return operr.Sanitize(raw, err)
	}
	if !info.Mode().IsRegular() {
		return operr.New(operr.KindNotAFile, "target is not a regular file")
	}

	if err := os.Remove(rp.Path); err != nil {
		return operr.Sanitize(raw, err)
	}
	return nil
}

// MoveFile renames a file. Source and destination are validated
// independently, destination included, before the rename is attempted: a
// validated source must never be committed to an unvalidated destination.
func (g *Gateway) MoveFile(ctx context.Context, fromRaw, toRaw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := g.validate(fromRaw, policy.ClassWrite, true, policy.SizeUnknown)
	if err != nil {
		return err
	}
	to, err := g.validate(toRaw, policy.ClassWrite, true, policy.SizeUnknown)
	if err != nil {
		return err
	}

	if !from.Exists {
		return operr.New(operr.KindNotFound, fromRaw)
	}
	if err := os.Rename(from.Path, to.Path); err != nil {
		return operr.Sanitize(fromRaw, err)
	}
	return nil
}

// CopyFile copies a regular file, returning the number of bytes copied.
//
// The source is opened first and its handle metadata drives the regular-
// file and size checks; the copy then streams from that same handle,
// bounded by the stat-reported size.
func (g *Gateway) CopyFile(ctx context.Context, fromRaw, toRaw string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	from, err := g.validate(fromRaw, policy.ClassWrite, true, policy.SizeUnknown)
	if err != nil {
		return 0, err
	}
	to, err := g.validate(toRaw, policy.ClassWrite, true, policy.SizeUnknown)
	if err != nil {
		return 0, err
	}

	src, err := g.open(from, 0, 0, fromRaw) // O_RDONLY
	if err != nil {
		return 0, err
	}
	defer src.Close()

	st, err := src.Stat()
	if err != nil {
		return 0, operr.Sanitize(fromRaw, err)
	}
	if !st.Mode().IsRegular() {
		return 0, operr.New(operr.KindNotAFile, "source is not a regular file")
	}
	if err := g.policy.CheckSize(st.Size()); err != nil {
		return 0, err
	}

	dst, err := g.open(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm()&fs.ModePerm, toRaw)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	dstInfo, err := dst.Stat()
	if err != nil {
		return 0, operr.Sanitize(toRaw, err)
	}
	if !dstInfo.Mode().IsRegular() {
		return 0, operr.New(operr.KindNotAFile, "destination is not a regular file")
	}

	n, err := io.Copy(dst, io.LimitReader(src, st.Size()))
	if err != nil {
		return n, operr.Sanitize(toRaw, err)
	}
	return n, nil
}
