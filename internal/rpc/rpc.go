// Package rpc mounts Connect unary procedures whose messages are plain Go
// structs encoded as JSON.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Codec is a Connect codec for plain structs. It replaces the default
// protobuf-JSON codec under the "json" name.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// Procedure returns the URL path of method on service, e.g.
// "/mealbox.v1.CartService/GetCart".
func Procedure(service, method string) string {
	return "/" + service + "/" + method
}

// Handle mounts a unary procedure on mux.
func Handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewClient creates a client for one unary procedure served at baseURL.
func NewClient[Req, Res any](hc connect.HTTPClient, baseURL, procedure string, opts ...connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return connect.NewClient[Req, Res](hc, strings.TrimRight(baseURL, "/")+procedure, opts...)
}
