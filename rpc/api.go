// Package rpc serves a model over JSON-RPC 2.0.
//
// Each connection is a session.  Sessions read and write properties, call
// methods, apply merge patches, evaluate expressions and watch paths for
// changes.  Changes made by one session are pushed to the others as
// "changed" notifications.
package rpc

import (
	"encoding/json"
	"errors"

	"github.com/signadot/tony-format/go-dash/model"
	"go.lsp.dev/jsonrpc2"
)

// Methods.
const (
	MethodName      = "name"
	MethodProps     = "props"
	MethodGet       = "get"
	MethodSet       = "set"
	MethodCall      = "call"
	MethodSerialize = "serialize"
	MethodSnapshot  = "snapshot"
	MethodPatch     = "patch"
	MethodEval      = "eval"
	MethodWatch     = "watch"
	MethodUnwatch   = "unwatch"

	// NotifyChanged is sent by the server for watched changes.
	NotifyChanged = "changed"
)

type PathParams struct {
	Path string `json:"path"`
}

type SetParams struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type CallParams struct {
	Path string `json:"path"`
	Args []any  `json:"args"`
}

// PatchParams holds either a merge patch or JSON patch operations.
type PatchParams struct {
	Patch json.RawMessage `json:"patch,omitempty"`
	Ops   json.RawMessage `json:"ops,omitempty"`
}

type EvalParams struct {
	Expr string `json:"expr"`
}

type WatchResult struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Changed is the payload of a change notification.
type Changed struct {
	Path   string `json:"path"`
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
	Seq    int64  `json:"seq"`
}

// Application error codes.  Codes outside this list are the JSON-RPC ones.
const (
	CodeNotFound        jsonrpc2.Code = 1001
	CodeNotSettable     jsonrpc2.Code = 1002
	CodeTypeMismatch    jsonrpc2.Code = 1003
	CodeEnumLookup      jsonrpc2.Code = 1004
	CodeIndexOutOfRange jsonrpc2.Code = 1005
	CodeNotCallable     jsonrpc2.Code = 1006
	CodeNilPointer      jsonrpc2.Code = 1007
	CodeAlreadyWatching jsonrpc2.Code = 1010
	CodeNotWatching     jsonrpc2.Code = 1011
)

var (
	ErrAlreadyWatching = errors.New("already watching")
	ErrNotWatching     = errors.New("not watching")
)

var codes = []struct {
	code jsonrpc2.Code
	err  error
}{
	{CodeNotFound, model.ErrNotFound},
	{CodeNotSettable, model.ErrNotSettable},
	{CodeTypeMismatch, model.ErrTypeMismatch},
	{CodeEnumLookup, model.ErrEnumLookup},
	{CodeIndexOutOfRange, model.ErrIndexOutOfRange},
	{CodeNotCallable, model.ErrNotCallable},
	{CodeNilPointer, model.ErrNilPointer},
	{CodeAlreadyWatching, ErrAlreadyWatching},
	{CodeNotWatching, ErrNotWatching},
}

// rpcError converts err to a JSON-RPC error carrying the code of the
// sentinel it wraps.
func rpcError(err error) *jsonrpc2.Error {
	var re *jsonrpc2.Error
	if errors.As(err, &re) {
		return re
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return jsonrpc2.NewError(c.code, err.Error())
		}
	}
	return jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
}

// RemoteError is an error returned by the server.  It unwraps to the
// sentinel matching its code, so errors.Is works across the connection.
type RemoteError struct {
	Code    jsonrpc2.Code
	Message string
	err     error
}

func (e *RemoteError) Error() string { return e.Message }
func (e *RemoteError) Unwrap() error { return e.err }

func remoteError(err error) error {
	var re *jsonrpc2.Error
	if !errors.As(err, &re) {
		return err
	}
	res := &RemoteError{Code: re.Code, Message: re.Message}
	for _, c := range codes {
		if c.code == re.Code {
			res.err = c.err
			break
		}
	}
	return res
}
