package controller

import (
	"github.com/fasthttp/router"
)

// HttpController is one routable unit of the API: it attaches its own routes
// to the shared router.
type HttpController interface {
	AddRoute(r *router.Router)
}
