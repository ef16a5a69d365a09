package httpengine

import (
	"net"
	"testing"
	"time"
)

func startEchoServer(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		conn.Read(buf)
		conn.Write([]byte(response))
	}()

	return ln.Addr().String()
}

func TestSendGetRoundTrip(t *testing.T) {
	addr := startEchoServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	host, portText, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	url := ParseURL("http://" + host)
	var port int
	for _, c := range portText {
		port = port*10 + int(c-'0')
	}
	url.Port = port

	req := Request{Method: "GET", URL: url, Version: "HTTP/1.1"}
	resp, timing, errText := Send(t.Context(), req, 2*time.Second)
	if errText != "" {
		t.Fatalf("Send() error = %q", errText)
	}
	if resp.Status != 200 || resp.Body != "ok" {
		t.Fatalf("resp = %+v", resp)
	}
	if timing.Total != timing.Resolve+timing.Connect+timing.Write+timing.Delay+timing.Read {
		t.Fatalf("timing components don't sum to total: %+v", timing)
	}
}

func TestSendConnectFailureReturnsErrorText(t *testing.T) {
	url := ParseURL("http://127.0.0.1")
	url.Port = 1
	req := Request{Method: "GET", URL: url, Version: "HTTP/1.1"}
	resp, _, errText := Send(t.Context(), req, 500*time.Millisecond)
	if errText == "" {
		t.Fatal("expected a non-empty error text")
	}
	if resp.Status != 0 {
		t.Fatalf("expected a zero-value Response, got %+v", resp)
	}
}
