// Package dispatch routes protocol requests to gateway operations.
//
// A request moves through four stages: received (operation name and
// arguments checked), admitted (rate limiter passed), resolved (path and
// policy checks passed inside the gateway), completed. A request rejected
// at the received or admitted stage never triggers any path work.
package dispatch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/filegate/filegate/internal/logger"
	"github.com/filegate/filegate/internal/ratelimiter"
	"github.com/filegate/filegate/pkg/gateway"
	"github.com/filegate/filegate/pkg/metrics"
	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/protocol"
)

// Operation names accepted on the wire.
const (
	OpRead            = "read"
	OpWrite           = "write"
	OpAppend          = "append"
	OpList            = "list"
	OpGetMetadata     = "get-metadata"
	OpExists          = "exists"
	OpDelete          = "delete"
	OpMove            = "move"
	OpCopy            = "copy"
	OpCreateDirectory = "create-directory"
	OpRemoveDirectory = "remove-directory"
	OpSearchByName    = "search-by-name"
	OpSearchByContent = "search-by-content"
)

// Dispatcher validates, admits and executes requests one at a time.
type Dispatcher struct {
	gateway *gateway.Gateway
	limiter *ratelimiter.RateLimiter
	metrics metrics.GatewayMetrics
}

// New creates a Dispatcher.
//
// Panics if gw or limiter is nil (programmer error). A nil metrics
// implementation is replaced with the no-op one.
func New(gw *gateway.Gateway, limiter *ratelimiter.RateLimiter, m metrics.GatewayMetrics) *Dispatcher {
	if gw == nil {
		panic("dispatch: gateway cannot be nil")
	}
	if limiter == nil {
		panic("dispatch: rate limiter cannot be nil")
	}
	if m == nil {
		m = metrics.NewNoopGatewayMetrics()
	}
	return &Dispatcher{gateway: gw, limiter: limiter, metrics: m}
}

// Dispatch executes one request and always returns a response; errors
// are folded into the response record, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	start := time.Now()
	result, err := d.execute(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		kind := operr.KindOf(err)
		logger.Debug("operation %s failed: %s", req.Op, kind)
		d.metrics.RecordRequest(req.Op, string(kind), elapsed)
		if isPolicyKind(kind) {
			d.metrics.RecordPolicyDenial(req.Op, string(kind))
		}
		return protocol.Failure(req.ID, err)
	}
	d.metrics.RecordRequest(req.Op, "ok", elapsed)
	d.recordTransfer(result)
	return protocol.Success(req.ID, result)
}

// recordTransfer accounts payload bytes for the operations that move
// content.
func (d *Dispatcher) recordTransfer(result any) {
	m, ok := result.(map[string]any)
	if !ok {
		return
	}
	if content, ok := m["content"].(string); ok {
		d.metrics.RecordBytesTransferred("read", int64(len(content)))
	}
	if n, ok := m["bytes_written"].(int); ok {
		d.metrics.RecordBytesTransferred("write", int64(n))
	}
	if n, ok := m["bytes_copied"].(int64); ok {
		d.metrics.RecordBytesTransferred("write", n)
	}
}

func isPolicyKind(kind operr.Kind) bool {
	switch kind {
	case operr.KindPathNotAllowed, operr.KindExtensionNotAllowed,
		operr.KindSizeLimitExceeded, operr.KindSymlinkNotAllowed,
		operr.KindHiddenFileNotAllowed, operr.KindReadOnlyViolation:
		return true
	}
	return false
}

func (d *Dispatcher) execute(ctx context.Context, req protocol.Request) (any, error) {
	handler, ok := handlers[req.Op]
	if !ok {
		return nil, operr.Newf(operr.KindUnknownOperation, "unknown operation %q", req.Op)
	}

	call, err := handler(req.Args)
	if err != nil {
		return nil, err
	}

	if !d.limiter.Allow() {
		d.metrics.RecordRateLimited(req.Op)
		return nil, operr.New(operr.KindRateLimited, "request rate limit exceeded")
	}

	return call(ctx, d.gateway)
}

// A handler decodes an argument record into a bound gateway call. Decoding
// happens before admission so that malformed requests cost no token.
type handler func(args map[string]any) (boundCall, error)

type boundCall func(ctx context.Context, g *gateway.Gateway) (any, error)

var handlers = map[string]handler{
	OpRead: func(args map[string]any) (boundCall, error) {
		var a pathArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			content, err := g.ReadFile(ctx, a.Path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"content": content}, nil
		}, nil
	},
	OpWrite: func(args map[string]any) (boundCall, error) {
		var a contentArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			n, err := g.WriteFile(ctx, a.Path, a.Content)
			if err != nil {
				return nil, err
			}
			return map[string]any{"bytes_written": n}, nil
		}, nil
	},
	OpAppend: func(args map[string]any) (boundCall, error) {
		var a contentArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			n, err := g.AppendFile(ctx, a.Path, a.Content)
			if err != nil {
				return nil, err
			}
			return map[string]any{"bytes_written": n}, nil
		}, nil
	},
	OpList: func(args map[string]any) (boundCall, error) {
		var a recursiveArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			entries, err := g.ListDirectory(ctx, a.Path, a.Recursive)
			if err != nil {
				return nil, err
			}
			return map[string]any{"entries": entries}, nil
		}, nil
	},
	OpGetMetadata: func(args map[string]any) (boundCall, error) {
		var a pathArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			return g.GetMetadata(ctx, a.Path)
		}, nil
	},
	OpExists: func(args map[string]any) (boundCall, error) {
		var a pathArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			ok, err := g.Exists(ctx, a.Path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"exists": ok}, nil
		}, nil
	},
	OpDelete: func(args map[string]any) (boundCall, error) {
		var a pathArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			return emptyResult, g.DeleteFile(ctx, a.Path)
		}, nil
	},
	OpMove: func(args map[string]any) (boundCall, error) {
		var a fromToArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			return emptyResult, g.MoveFile(ctx, a.From, a.To)
		}, nil
	},
	OpCopy: func(args map[string]any) (boundCall, error) {
		var a fromToArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			n, err := g.CopyFile(ctx, a.From, a.To)
			if err != nil {
				return nil, err
			}
			return map[string]any{"bytes_copied": n}, nil
		}, nil
	},
	OpCreateDirectory: func(args map[string]any) (boundCall, error) {
		var a recursiveArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			return emptyResult, g.CreateDirectory(ctx, a.Path, a.Recursive)
		}, nil
	},
	OpRemoveDirectory: func(args map[string]any) (boundCall, error) {
		var a recursiveArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			return emptyResult, g.RemoveDirectory(ctx, a.Path, a.Recursive)
		}, nil
	},
	OpSearchByName: func(args map[string]any) (boundCall, error) {
		var a searchArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			paths, err := g.SearchByName(ctx, a.Path, a.Pattern, a.options())
			if err != nil {
				return nil, err
			}
			matches := make([]map[string]any, 0, len(paths))
			for _, p := range paths {
				matches = append(matches, map[string]any{"path": p})
			}
			return map[string]any{"matches": matches}, nil
		}, nil
	},
	OpSearchByContent: func(args map[string]any) (boundCall, error) {
		var a searchArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return func(ctx context.Context, g *gateway.Gateway) (any, error) {
			hits, err := g.SearchByContent(ctx, a.Path, a.Pattern, a.options())
			if err != nil {
				return nil, err
			}
			return map[string]any{"matches": hits}, nil
		}, nil
	},
}

// emptyResult is the payload of operations that succeed without data.
var emptyResult = map[string]any{}

type pathArgs struct {
	Path string `mapstructure:"path"`
}

func (a pathArgs) validate() error { return requireField("path", a.Path) }

type contentArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

// Empty content is legal for write and append, so only path is required.
func (a contentArgs) validate() error { return requireField("path", a.Path) }

type recursiveArgs struct {
	Path      string `mapstructure:"path"`
	Recursive bool   `mapstructure:"recursive"`
}

func (a recursiveArgs) validate() error { return requireField("path", a.Path) }

type fromToArgs struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

func (a fromToArgs) validate() error {
	if err := requireField("from", a.From); err != nil {
		return err
	}
	return requireField("to", a.To)
}

type searchArgs struct {
	Path         string `mapstructure:"path"`
	Pattern      string `mapstructure:"pattern"`
	Recursive    bool   `mapstructure:"recursive"`
	MaxResults   int    `mapstructure:"max_results"`
	ContextLines int    `mapstructure:"context_lines"`
}

func (a searchArgs) validate() error {
	if err := requireField("path", a.Path); err != nil {
		return err
	}
	if err := requireField("pattern", a.Pattern); err != nil {
		return err
	}
	if a.MaxResults < 0 {
		return operr.New(operr.KindInvalidArguments, "field max_results must not be negative")
	}
	if a.ContextLines < 0 {
		return operr.New(operr.KindInvalidArguments, "field context_lines must not be negative")
	}
	return nil
}

func (a searchArgs) options() gateway.SearchOptions {
	return gateway.SearchOptions{
		Recursive:    a.Recursive,
		MaxResults:   a.MaxResults,
		ContextLines: a.ContextLines,
	}
}

type validatable interface{ validate() error }

// decodeArgs maps an argument record onto a typed struct. Unknown fields
// are rejected by name, as are fields of the wrong type, so a caller
// always learns which field broke the request.
func decodeArgs(args map[string]any, out validatable) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return operr.Wrap(operr.KindInvalidArguments, "argument decoding unavailable", err)
	}
	if err := dec.Decode(args); err != nil {
		return operr.New(operr.KindInvalidArguments, "malformed argument record: "+firstBadField(err))
	}
	if len(md.Unused) > 0 {
		return operr.Newf(operr.KindInvalidArguments, "unknown field %q", md.Unused[0])
	}
	return out.validate()
}

func requireField(name, value string) error {
	if value == "" {
		return operr.Newf(operr.KindInvalidArguments, "missing required field %q", name)
	}
	return nil
}

// firstBadField extracts the first quoted field name from a mapstructure
// decode error so the response names the offending field.
func firstBadField(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\''); i >= 0 {
		if j := strings.IndexByte(msg[i+1:], '\''); j >= 0 {
			return "field " + strconv.Quote(msg[i+1:i+1+j])
		}
	}
	return "unexpected field set"
}
