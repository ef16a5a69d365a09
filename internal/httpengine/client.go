package httpengine

import (
	"bufio"
	"context"
	"time"

	"golang.org/x/net/http/httpguts"
)

// DefaultConnectTimeout bounds the Happy-Eyeballs connect race, which
// surfaces ConnectTimeout when it runs out, and separately the TLS
// handshake for Https, which surfaces TLSHandshakeFailed. DNS resolution is
// bounded only by the caller's context.
const DefaultConnectTimeout = 30 * time.Second

// Send performs one request/response round trip and always returns a
// well-formed Response and Timing — connect/write/read failures never
// propagate as a Go error; they are reported through the returned error
// kind string so VM-level scripts can branch on `record.error`, per the
// engine's failure model.
func Send(ctx context.Context, req Request, connectTimeout time.Duration) (Response, Timing, string) {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	for _, h := range req.Headers {
		if !httpguts.ValidHeaderFieldName(h.Name) || !httpguts.ValidHeaderFieldValue(h.Value) {
			return Response{}, Timing{}, (&Error{Kind: WriteFailed}).Error()
		}
	}

	wallStart := time.Now()

	conn, resolve, connectDur, cerr := connect(ctx, req.URL, connectTimeout)
	if cerr != nil {
		return Response{}, newTiming(wallStart, time.Now(), resolve, connectDur, 0, 0, 0), cerr.Error()
	}
	defer conn.Close()

	payload, ferr := frame(req)
	if ferr != nil {
		return Response{}, newTiming(wallStart, time.Now(), resolve, connectDur, 0, 0, 0), ferr.Error()
	}

	writeStart := time.Now()
	if _, err := conn.Write(payload); err != nil {
		werr := &Error{Kind: WriteFailed, Inner: err}
		return Response{}, newTiming(wallStart, time.Now(), resolve, connectDur, time.Since(writeStart), 0, 0), werr.Error()
	}
	writeDur := time.Since(writeStart)

	readStart := time.Now()
	reader := bufio.NewReader(conn)
	resp, firstByte, lastByte, perr := parseResponse(reader)
	if perr != nil {
		rerr, _ := perr.(*Error)
		if rerr == nil {
			rerr = &Error{Kind: ReadFailed, Inner: perr}
		}
		return Response{}, newTiming(wallStart, time.Now(), resolve, connectDur, writeDur, 0, 0), rerr.Error()
	}
	delay := firstByte.Sub(readStart)
	read := lastByte.Sub(firstByte)

	wallEnd := time.Now()
	return resp, newTiming(wallStart, wallEnd, resolve, connectDur, writeDur, delay, read), ""
}
