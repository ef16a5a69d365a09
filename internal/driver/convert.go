package driver

import (
	"github.com/basjoofan-go/fan/internal/fan"
	"github.com/basjoofan-go/fan/internal/httpengine"
	"github.com/basjoofan-go/fan/internal/record"
)

// resultToValue packages one HTTP send's outcome into the map the http()
// native hands back to script land: {request, response, time, error},
// mirroring spec §4.7's native contract table.
func resultToValue(req httpengine.Request, resp httpengine.Response, timing httpengine.Timing, errText string) fan.Value {
	return fan.NewMap(
		[]string{"request", "response", "time", "error"},
		[]fan.Value{
			requestToValue(req),
			responseToValue(resp),
			timingToValue(timing),
			fan.StringValue(errText),
		},
	)
}

func requestToValue(req httpengine.Request) fan.Value {
	return fan.NewMap(
		[]string{"method", "url", "version", "headers", "body"},
		[]fan.Value{
			fan.StringValue(req.Method),
			fan.StringValue(req.URL.String()),
			fan.StringValue(req.Version),
			headersToValue(req.Headers),
			fan.StringValue(req.Body),
		},
	)
}

func responseToValue(resp httpengine.Response) fan.Value {
	return fan.NewMap(
		[]string{"version", "status", "reason", "headers", "body"},
		[]fan.Value{
			fan.StringValue(resp.Version),
			fan.IntegerValue(int64(resp.Status)),
			fan.StringValue(resp.Reason),
			headersToValue(resp.Headers),
			fan.StringValue(resp.Body),
		},
	)
}

func timingToValue(t httpengine.Timing) fan.Value {
	return fan.NewMap(
		[]string{"start", "end", "total", "resolve", "connect", "write", "delay", "read"},
		[]fan.Value{
			fan.IntegerValue(int64(t.Start)),
			fan.IntegerValue(int64(t.End)),
			fan.IntegerValue(int64(t.Total)),
			fan.IntegerValue(int64(t.Resolve)),
			fan.IntegerValue(int64(t.Connect)),
			fan.IntegerValue(int64(t.Write)),
			fan.IntegerValue(int64(t.Delay)),
			fan.IntegerValue(int64(t.Read)),
		},
	)
}

func headersToValue(headers []httpengine.Header) fan.Value {
	out := make([]fan.Value, len(headers))
	for i, h := range headers {
		out[i] = fan.ArrayValue([]fan.Value{fan.StringValue(h.Name), fan.StringValue(h.Value)})
	}
	return fan.ArrayValue(out)
}

// valueToRecord reconstructs the persisted Record shape from the three
// arguments the compiler-only emit-record native receives: the request's
// declared name, the script-evaluated assertion array, and the http()
// result map built by resultToValue above.
func valueToRecord(name string, asserts []fan.Value, result fan.Value) record.Record {
	rec := record.Record{Name: name}
	if result.Type != fan.MapType {
		return rec
	}
	if req, ok := result.Map["request"]; ok {
		rec.Request = record.Request{
			Method:  field(req, "method"),
			URL:     field(req, "url"),
			Version: field(req, "version"),
			Headers: headersFromValue(req),
			Body:    field(req, "body"),
		}
	}
	if resp, ok := result.Map["response"]; ok {
		status := int64(0)
		if v, ok := resp.Map["status"]; ok {
			status = v.Integer
		}
		rec.Response = record.Response{
			Version: field(resp, "version"),
			Status:  int(status),
			Reason:  field(resp, "reason"),
			Headers: headersFromValue(resp),
			Body:    field(resp, "body"),
		}
	}
	if t, ok := result.Map["time"]; ok {
		rec.Time = record.Time{
			Start:   integerField(t, "start"),
			End:     integerField(t, "end"),
			Total:   integerField(t, "total"),
			Resolve: integerField(t, "resolve"),
			Connect: integerField(t, "connect"),
			Write:   integerField(t, "write"),
			Delay:   integerField(t, "delay"),
			Read:    integerField(t, "read"),
		}
	}
	rec.Error = field(result, "error")

	rec.Asserts = make([]record.Assert, 0, len(asserts))
	for _, a := range asserts {
		if a.Type != fan.MapType {
			continue
		}
		result := false
		if v, ok := a.Map["result"]; ok {
			result = v.Boolean
		}
		rec.Asserts = append(rec.Asserts, record.Assert{
			Expr:    field(a, "expr"),
			Left:    field(a, "left"),
			Compare: field(a, "compare"),
			Right:   field(a, "right"),
			Result:  result,
		})
	}
	return rec
}

func field(v fan.Value, key string) string {
	if v.Type != fan.MapType {
		return ""
	}
	if f, ok := v.Map[key]; ok {
		return f.ToDisplayString()
	}
	return ""
}

func integerField(v fan.Value, key string) int64 {
	if v.Type != fan.MapType {
		return 0
	}
	if f, ok := v.Map[key]; ok {
		return f.Integer
	}
	return 0
}

func headersFromValue(v fan.Value) []record.Header {
	if v.Type != fan.MapType {
		return nil
	}
	hv, ok := v.Map["headers"]
	if !ok || hv.Type != fan.ArrayType {
		return nil
	}
	out := make([]record.Header, 0, len(hv.Array))
	for _, pair := range hv.Array {
		if pair.Type != fan.ArrayType || len(pair.Array) != 2 {
			continue
		}
		out = append(out, record.Header{Name: pair.Array[0].String, Value: pair.Array[1].String})
	}
	return out
}
