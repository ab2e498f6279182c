// Package server runs the request/response loop over a byte stream.
//
// Requests are processed strictly sequentially, in arrival order: a
// request is read, dispatched to completion, and its response written
// before the next request is read. There is no concurrent execution and
// therefore no internal locking around filesystem state.
package server

import (
	"bufio"
	"context"
	"io"

	"github.com/filegate/filegate/internal/logger"
	"github.com/filegate/filegate/pkg/dispatch"
	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/protocol"
)

// maxLineBytes bounds a single request record. A longer line is a
// protocol violation: it gets an error response and is discarded up to
// the next newline.
const maxLineBytes = 16 * 1024 * 1024

// Server reads line-delimited requests from in and writes one response
// line per request to out.
type Server struct {
	dispatcher *dispatch.Dispatcher
	in         io.Reader
	out        io.Writer
}

// New creates a Server. Panics if any dependency is nil (programmer
// error).
func New(d *dispatch.Dispatcher, in io.Reader, out io.Writer) *Server {
	if d == nil {
		panic("server: dispatcher cannot be nil")
	}
	if in == nil || out == nil {
		panic("server: streams cannot be nil")
	}
	return &Server{dispatcher: d, in: in, out: out}
}

// Serve processes requests until the input stream ends or ctx is
// cancelled. Cancellation is graceful: the request in flight completes
// and its response is written before Serve returns ctx.Err().
//
// Malformed or oversized lines produce an error response and never stop
// the loop.
func (s *Server) Serve(ctx context.Context) error {
	w := bufio.NewWriter(s.out)
	r := bufio.NewReaderSize(s.in, 64*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, tooLong, rerr := readLine(r)
		if rerr != nil && rerr != io.EOF {
			logger.Error("request stream failed: %v", rerr)
			return rerr
		}

		switch {
		case tooLong:
			resp := protocol.Failure("", operr.New(operr.KindInvalidArguments, "request record too large"))
			if err := s.writeResponse(w, resp); err != nil {
				return err
			}
		case len(line) > 0:
			var resp protocol.Response
			req, err := protocol.ParseRequest(line)
			if err != nil {
				resp = protocol.Failure("", err)
			} else {
				resp = s.dispatcher.Dispatch(ctx, req)
			}
			if err := s.writeResponse(w, resp); err != nil {
				return err
			}
		}

		if rerr == io.EOF {
			return nil
		}
	}
}

// readLine assembles one newline-terminated record. A record beyond
// maxLineBytes is discarded up to the next newline and reported as
// tooLong so the caller can answer with an error instead of aborting.
// At end of input the final unterminated record, if any, is returned
// alongside io.EOF.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		frag, err := r.ReadSlice('\n')
		if err != nil && err != bufio.ErrBufferFull {
			line = append(line, frag...)
			return line, false, err
		}
		line = append(line, frag...)
		if err == nil {
			return line[:len(line)-1], false, nil
		}
		if len(line) > maxLineBytes {
			return nil, true, discardLine(r)
		}
	}
}

// discardLine skips the remainder of the current record.
func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		switch err {
		case nil:
			return nil
		case bufio.ErrBufferFull:
			continue
		default:
			return err
		}
	}
}

func (s *Server) writeResponse(w *bufio.Writer, resp protocol.Response) error {
	out, err := protocol.EncodeResponse(resp)
	if err != nil {
		// A result that cannot be marshalled is an internal bug; the
		// caller still gets a well-formed error line.
		logger.Error("response encoding failed: %v", err)
		out, _ = protocol.EncodeResponse(protocol.Response{
			ID: resp.ID,
			OK: false,
			Error: &protocol.ErrorBody{
				Kind:    "IoFailure",
				Message: "response encoding failed",
			},
		})
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
