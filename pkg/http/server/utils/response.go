package serverutils

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var ErrWriteResponse = errors.New("error occurred while writing data into *fasthttp.RequestCtx")

func Write(b []byte, ctx *fasthttp.RequestCtx) (int, error) {
	n, err := ctx.Write(b)
	if err != nil {
		log.Error().Err(err).Msg("error while writing data into *fasthttp.RequestCtx")
		return 0, ErrWriteResponse
	}
	return n, nil
}

// BadRequest writes a 400 with a JSON error message.
func BadRequest(msg string, ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	ctx.SetContentType("application/json")
	_, _ = Write([]byte(`{"error":"`+msg+`"}`), ctx)
}
