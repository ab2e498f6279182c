package gateway

import (
	"context"
	"io"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
)

// ReadFile returns the full content of a regular file as text.
//
// The size ceiling is enforced twice: once against the stat of the opened
// handle before any bytes are read, and again as a hard bound on the read
// itself. Both checks use the handle, never a re-derived path.
func (g *Gateway) ReadFile(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rp, err := g.validate(raw, policy.ClassRead, true, policy.SizeUnknown)
	if err != nil {
		return "", err
	}

	f, err := g.open(rp, 0, 0, raw) // O_RDONLY
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", operr.Sanitize(raw, err)
	}
	if !st.Mode().IsRegular() {
		return "", operr.New(operr.KindNotAFile, "target is not a regular file")
	}
	if err := g.policy.CheckSize(st.Size()); err != nil {
		// Reject before reading any bytes.
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(f, st.Size()))
	if err != nil {
		return "", operr.Sanitize(raw, err)
	}
	return string(data), nil
}
