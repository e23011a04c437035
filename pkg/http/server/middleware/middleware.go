package middleware

import (
	"github.com/valyala/fasthttp"
)

// HttpMiddleware wraps a request handler; the server merges middlewares in
// declaration order around the router handler.
type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}
