package gateway

import (
	"context"
	"os"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
)

// WriteFile creates or truncates a file with the given content, returning
// the number of bytes written.
//
// The size check runs inside validation with the known byte count, so an
// oversized write fails outright instead of succeeding and then failing on
// the read back. The parent directory is validated implicitly: resolution
// canonicalizes through the real existing ancestor, and the policy prefix
// rules apply to that ancestor.
func (g *Gateway) WriteFile(ctx context.Context, raw, content string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	rp, err := g.validate(raw, policy.ClassWrite, true, int64(len(content)))
	if err != nil {
		return 0, err
	}

	f, err := g.open(rp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644, raw)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, operr.Sanitize(raw, err)
	}
	if !st.Mode().IsRegular() {
		return 0, operr.New(operr.KindNotAFile, "target is not a regular file")
	}

	n, err := f.WriteString(content)
	if err != nil {
		return n, operr.Sanitize(raw, err)
	}
	if err := f.Sync(); err != nil {
		return n, operr.Sanitize(raw, err)
	}
	return n, nil
}

// AppendFile appends content to a file, creating it if absent, returning
// the number of bytes written.
//
// The content length is a lower bound on the resulting size, so it is
// checked up front: an append whose content alone exceeds the ceiling
// fails before the file is created. The exact resulting size is only
// known from the opened handle's stat and is checked again there.
func (g *Gateway) AppendFile(ctx context.Context, raw, content string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	rp, err := g.validate(raw, policy.ClassWrite, true, int64(len(content)))
	if err != nil {
		return 0, err
	}

	f, err := g.open(rp, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644, raw)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, operr.Sanitize(raw, err)
	}
	if !st.Mode().IsRegular() {
		return 0, operr.New(operr.KindNotAFile, "target is not a regular file")
	}
	if err := g.policy.CheckSize(st.Size() + int64(len(content))); err != nil {
		return 0, err
	}

	n, err := f.WriteString(content)
	if err != nil {
		return n, operr.Sanitize(raw, err)
	}
	if err := f.Sync(); err != nil {
		return n, operr.Sanitize(raw, err)
	}
	return n, nil
}
