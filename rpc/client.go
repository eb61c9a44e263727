package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/signadot/tony-format/go-dash/model"
	"go.lsp.dev/jsonrpc2"
)

// Client is a connection to a server.
type Client struct {
	conn    jsonrpc2.Conn
	log     *slog.Logger
	changed chan *Changed
}

// Dial connects to the server listening on the TCP address addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, c), nil
}

// NewClient runs a client over rwc.  Change notifications are delivered on
// Changed; they are dropped when its buffer is full.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser) *Client {
	c := &Client{
		conn:    jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		log:     slog.Default(),
		changed: make(chan *Changed, 256),
	}
	c.conn.Go(ctx, c.handle)
	return c
}

func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if req.Method() != NotifyChanged {
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
	ch := &Changed{}
	if err := decodeParams(req, ch); err != nil {
		c.log.Warn("bad notification", "error", err)
		return nil
	}
	ch.Value = plain(ch.Value)
	select {
	case c.changed <- ch:
	default:
		c.log.Warn("dropping change notification", "path", ch.Path)
	}
	return nil
}

// Changed returns the channel of change notifications for watched paths.
func (c *Client) Changed() <-chan *Changed {
	return c.changed
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// call invokes method and decodes the result into res, if non-nil.
func (c *Client) call(ctx context.Context, method string, params, res any) error {
	var raw json.RawMessage
	if _, err := c.conn.Call(ctx, method, params, &raw); err != nil {
		return remoteError(err)
	}
	if res == nil || len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(res)
}

// value calls a method returning an arbitrary value.
func (c *Client) value(ctx context.Context, method string, params any) (any, error) {
	var v any
	if err := c.call(ctx, method, params, &v); err != nil {
		return nil, err
	}
	return plain(v), nil
}

// Name returns the display name of the plugin.
func (c *Client) Name(ctx context.Context) (string, error) {
	var name string
	err := c.call(ctx, MethodName, nil, &name)
	return name, err
}

// Props returns the schema of the subtree at path.
func (c *Client) Props(ctx context.Context, path string) (*model.Descriptor, error) {
	p := &model.Descriptor{}
	if err := c.call(ctx, MethodProps, &PathParams{Path: path}, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) Get(ctx context.Context, path string) (any, error) {
	return c.value(ctx, MethodGet, &PathParams{Path: path})
}

func (c *Client) Set(ctx context.Context, path string, v any) error {
	return c.call(ctx, MethodSet, &SetParams{Path: path, Value: v}, nil)
}

func (c *Client) Call(ctx context.Context, path string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	return c.value(ctx, MethodCall, &CallParams{Path: path, Args: args})
}

func (c *Client) Serialize(ctx context.Context, path string) (any, error) {
	return c.value(ctx, MethodSerialize, &PathParams{Path: path})
}

func (c *Client) Snapshot(ctx context.Context) (map[string]any, error) {
	v, err := c.value(ctx, MethodSnapshot, nil)
	if err != nil {
		return nil, err
	}
	res, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("snapshot is not an object")
	}
	return res, nil
}

// Patch applies a JSON merge patch.
func (c *Client) Patch(ctx context.Context, patch []byte) error {
	return c.call(ctx, MethodPatch, &PatchParams{Patch: patch}, nil)
}

// PatchOps applies JSON patch operations.
func (c *Client) PatchOps(ctx context.Context, ops []byte) error {
	return c.call(ctx, MethodPatch, &PatchParams{Ops: ops}, nil)
}

func (c *Client) Eval(ctx context.Context, expr string) (any, error) {
	return c.value(ctx, MethodEval, &EvalParams{Expr: expr})
}

// Watch starts receiving changes at and below path on Changed.  It returns
// the current value at path.
func (c *Client) Watch(ctx context.Context, path string) (any, error) {
	res := &WatchResult{}
	if err := c.call(ctx, MethodWatch, &PathParams{Path: path}, res); err != nil {
		return nil, err
	}
	return plain(res.Value), nil
}

func (c *Client) Unwatch(ctx context.Context, path string) error {
	return c.call(ctx, MethodUnwatch, &PathParams{Path: path}, nil)
}

// plain replaces the json.Numbers in v by int64 or float64.  Numbers written
// with a fraction or exponent stay floats.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if bytes.ContainsAny([]byte(x), ".eE") {
			f, _ := x.Float64()
			return f
		}
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = plain(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = plain(x[k])
		}
	}
	return v
}
