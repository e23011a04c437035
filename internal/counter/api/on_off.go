package api

import (
	"encoding/json"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// OnOffController provides endpoints to switch the write surface on and off.
type OnOffController struct{}

// NewOnOffController creates a new OnOffController instance.
func NewOnOffController() *OnOffController {
	return &OnOffController{}
}

type onOffStatusResponse struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

// On handles GET /counter/on and enables registrations, returning JSON.
func (c *OnOffController) On(ctx *fasthttp.RequestCtx) {
	enabled.Store(true)
	resp := onOffStatusResponse{Enabled: true, Message: "counter enabled"}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json; charset=utf-8")
	_ = json.NewEncoder(ctx).Encode(resp)
}

// Off handles GET /counter/off and disables registrations, returning JSON.
func (c *OnOffController) Off(ctx *fasthttp.RequestCtx) {
	enabled.Store(false)
	resp := onOffStatusResponse{Enabled: false, Message: "counter disabled"}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json; charset=utf-8")
	_ = json.NewEncoder(ctx).Encode(resp)
}

// AddRoute attaches the on/off routes to the given router.
func (c *OnOffController) AddRoute(r *router.Router) {
	r.GET("/counter/on", c.On)
	r.GET("/counter/off", c.Off)
}
