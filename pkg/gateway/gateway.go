// Package gateway performs the OS-level filesystem operations behind the
// dispatcher.
//
// Every entry point validates and acts in one combined step: the target is
// opened (or stat'd) first, and every policy check that depends on real file
// state — size, type, realized path — is evaluated against metadata read
// from that same handle. There is deliberately no exported "validate this
// path" function: path-only validation followed by a separate open is
// exactly the time-of-check-to-time-of-use window this package exists to
// close.
package gateway

import (
	"errors"
	"os"
	"syscall"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
	"github.com/filegate/filegate/pkg/resolve"
)

// Gateway executes filesystem operations under an immutable access policy.
//
// The policy is read-only for the gateway's lifetime, so a single Gateway
// value is safe for concurrent use; the sequential processing guarantee
// lives in the server loop, not here.
type Gateway struct {
	policy *policy.AccessPolicy
}

// New creates a Gateway enforcing the given policy.
//
// Panics if policy is nil (programmer error).
func New(p *policy.AccessPolicy) *Gateway {
	if p == nil {
		panic("gateway: policy cannot be nil")
	}
	return &Gateway{policy: p}
}

// validate resolves a raw path and runs the pure policy checks against the
// canonical result. State-dependent checks (size, file type) happen later,
// against the opened handle.
func (g *Gateway) validate(raw string, class policy.Class, fileOp bool, size int64) (resolve.ResolvedPath, error) {
	rp, err := resolve.Resolve(raw)
	if err != nil {
		return resolve.ResolvedPath{}, err
	}
	if !g.policy.AllowSymlinks() {
		if err := resolve.VerifyNoSymlinks(raw); err != nil {
			return resolve.ResolvedPath{}, err
		}
	}
	if err := g.policy.Evaluate(policy.Request{Path: rp.Path, Class: class, FileOp: fileOp, Size: size}); err != nil {
		return resolve.ResolvedPath{}, err
	}
	return rp, nil
}

// open opens the canonical path, refusing to follow a final-component
// symlink when the policy forbids symlinks. A symlink swapped in between
// resolution and open therefore surfaces as SymlinkNotAllowed instead of
// being silently followed.
func (g *Gateway) open(rp resolve.ResolvedPath, flag int, perm os.FileMode, raw string) (*os.File, error) {
	if !g.policy.AllowSymlinks() {
		flag |= syscall.O_NOFOLLOW
	}
	f, err := os.OpenFile(rp.Path, flag, perm)
	if err != nil {
		if !g.policy.AllowSymlinks() && errors.Is(err, syscall.ELOOP) {
			return nil, operr.New(operr.KindSymlinkNotAllowed, "target is a symbolic link")
		}
		return nil, operr.Sanitize(raw, err)
	}
	return f, nil
}
