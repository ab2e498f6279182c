package dispatch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filegate/filegate/internal/ratelimiter"
	"github.com/filegate/filegate/pkg/gateway"
	"github.com/filegate/filegate/pkg/policy"
	"github.com/filegate/filegate/pkg/protocol"
)

func testDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	gw := gateway.New(policy.Restricted(root))
	return New(gw, ratelimiter.New(0, 0), nil), root
}

func dispatchReq(t *testing.T, d *Dispatcher, op string, args map[string]any) protocol.Response {
	t.Helper()
	return d.Dispatch(context.Background(), protocol.Request{ID: "1", Op: op, Args: args})
}

func TestNewPanicsOnNilDeps(t *testing.T) {
	root := t.TempDir()
	gw := gateway.New(policy.Restricted(root))
	lim := ratelimiter.New(0, 0)

	require.Panics(t, func() { New(nil, lim, nil) })
	require.Panics(t, func() { New(gw, nil, nil) })
	require.NotPanics(t, func() { New(gw, lim, nil) })
}

func TestUnknownOperation(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatchReq(t, d, "chmod", map[string]any{"path": "/x"})
	require.False(t, resp.OK)
	require.Equal(t, "UnknownOperation", resp.Error.Kind)
	require.Contains(t, resp.Error.Message, "chmod")
}

func TestMissingFieldIsNamed(t *testing.T) {
	d, root := testDispatcher(t)

	cases := []struct {
		op    string
		args  map[string]any
		field string
	}{
		{OpRead, map[string]any{}, "path"},
		{OpWrite, map[string]any{"content": "x"}, "path"},
		{OpMove, map[string]any{"from": filepath.Join(root, "a")}, "to"},
		{OpMove, map[string]any{"to": filepath.Join(root, "b")}, "from"},
		{OpSearchByName, map[string]any{"path": root}, "pattern"},
	}
	for _, tc := range cases {
		resp := dispatchReq(t, d, tc.op, tc.args)
		require.False(t, resp.OK, "%s %v", tc.op, tc.args)
		require.Equal(t, "InvalidArguments", resp.Error.Kind)
		require.Contains(t, resp.Error.Message, tc.field)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	d, root := testDispatcher(t)
	resp := dispatchReq(t, d, OpRead, map[string]any{"path": filepath.Join(root, "f"), "mode": "fast"})
	require.False(t, resp.OK)
	require.Equal(t, "InvalidArguments", resp.Error.Kind)
	require.Contains(t, resp.Error.Message, "mode")
}

func TestWriteReadThroughDispatcher(t *testing.T) {
	d, root := testDispatcher(t)
	target := filepath.Join(root, "doc.txt")

	resp := dispatchReq(t, d, OpWrite, map[string]any{"path": target, "content": "payload"})
	require.True(t, resp.OK, "write failed: %+v", resp.Error)
	require.Equal(t, map[string]any{"bytes_written": len("payload")}, resp.Result)

	resp = dispatchReq(t, d, OpRead, map[string]any{"path": target})
	require.True(t, resp.OK)
	require.Equal(t, map[string]any{"content": "payload"}, resp.Result)
}

func TestDirectoryLifecycleThroughDispatcher(t *testing.T) {
	d, root := testDispatcher(t)
	dir := filepath.Join(root, "a", "b")

	resp := dispatchReq(t, d, OpCreateDirectory, map[string]any{"path": dir, "recursive": true})
	require.True(t, resp.OK)

	resp = dispatchReq(t, d, OpExists, map[string]any{"path": dir})
	require.True(t, resp.OK)
	require.Equal(t, map[string]any{"exists": true}, resp.Result)

	resp = dispatchReq(t, d, OpRemoveDirectory, map[string]any{"path": dir, "recursive": false})
	require.True(t, resp.OK)

	resp = dispatchReq(t, d, OpExists, map[string]any{"path": dir})
	require.True(t, resp.OK)
	require.Equal(t, map[string]any{"exists": false}, resp.Result)
}

func TestErrorKindReachesResponse(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatchReq(t, d, OpRead, map[string]any{"path": "/etc/hosts"})
	require.False(t, resp.OK)
	require.Equal(t, "PathNotAllowed", resp.Error.Kind)
}

func TestFrozenBucketAdmitsExactlyCapacity(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	gw := gateway.New(policy.Restricted(root))
	d := New(gw, ratelimiter.New(0, 10), nil)
	target := filepath.Join(root, "f.txt")

	admitted := 0
	for i := 0; i < 25; i++ {
		resp := dispatchReq(t, d, OpExists, map[string]any{"path": target})
		if resp.OK {
			admitted++
		} else {
			require.Equal(t, "RateLimited", resp.Error.Kind)
		}
	}
	require.Equal(t, 10, admitted)
}

func TestRejectedRequestsConsumeNoTokens(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	gw := gateway.New(policy.Restricted(root))
	d := New(gw, ratelimiter.New(0, 1), nil)

	// Unknown operations and malformed arguments are rejected at the
	// received stage, before admission.
	for i := 0; i < 5; i++ {
		resp := dispatchReq(t, d, "bogus", nil)
		require.Equal(t, "UnknownOperation", resp.Error.Kind)
		resp = dispatchReq(t, d, OpRead, map[string]any{})
		require.Equal(t, "InvalidArguments", resp.Error.Kind)
	}

	resp := dispatchReq(t, d, OpExists, map[string]any{"path": filepath.Join(root, "f")})
	require.True(t, resp.OK, "the single token must still be available")
}

func TestSearchThroughDispatcher(t *testing.T) {
	d, root := testDispatcher(t)

	resp := dispatchReq(t, d, OpWrite, map[string]any{"path": filepath.Join(root, "a.go"), "content": "package main\n"})
	require.True(t, resp.OK)

	resp = dispatchReq(t, d, OpSearchByName, map[string]any{
		"path": root, "pattern": "*.go", "recursive": true,
	})
	require.True(t, resp.OK)
	result := resp.Result.(map[string]any)
	require.Len(t, result["matches"], 1)

	resp = dispatchReq(t, d, OpSearchByContent, map[string]any{
		"path": root, "pattern": "package", "recursive": true, "max_results": float64(5),
	})
	require.True(t, resp.OK)
	result = resp.Result.(map[string]any)
	require.Len(t, result["matches"].([]gateway.ContentMatch), 1)
}

func TestNegativeSearchOptionRejected(t *testing.T) {
	d, root := testDispatcher(t)
	resp := dispatchReq(t, d, OpSearchByName, map[string]any{
		"path": root, "pattern": "*", "max_results": float64(-1),
	})
	require.False(t, resp.OK)
	require.Equal(t, "InvalidArguments", resp.Error.Kind)
	require.Contains(t, resp.Error.Message, "max_results")
}
