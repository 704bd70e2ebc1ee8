package restyutil

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type sensitiveKeyType int

var sensitiveKey sensitiveKeyType

// WithSensitive marks every request made with the returned context so that
// its request and response bodies are left out of dumps.
func WithSensitive(ctx context.Context) context.Context {
	return context.WithValue(ctx, sensitiveKey, true)
}

func IsSensitive(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	sensitive, _ := ctx.Value(sensitiveKey).(bool)
	return sensitive
}

type instrumentCtx struct {
	output    InstrumentOutput
	idcounter *uint64
}

// DumpExchanges writes every completed request/response pair of the client
// to output. `output` can be nil, if it is, then the function is a no-op.
func DumpExchanges(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	i := instrumentCtx{output: output, idcounter: &idcounter}
	client.OnAfterResponse(i.onAfterResponse)
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	i.output.Write(messageId, formatHttpMessage(res))
	return nil
}
