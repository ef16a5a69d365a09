package httpengine

import "testing"

func TestParseMessageGet(t *testing.T) {
	req := ParseMessage("GET http://httpbin.org/get\nHost: httpbin.org")
	if req.Method != "GET" || req.URL.Host != "httpbin.org" || req.URL.Path != "/get" {
		t.Fatalf("req = %+v", req)
	}
	if v, ok := headerValue(req.Headers, "Host"); !ok || v != "httpbin.org" {
		t.Fatalf("headers = %+v", req.Headers)
	}
}

func TestParseMessagePostWithBody(t *testing.T) {
	msg := "POST https://httpbin.org/post\nHost: httpbin.org\nContent-Type: application/x-www-form-urlencoded\n\na: b"
	req := ParseMessage(msg)
	if req.Method != "POST" || req.URL.Scheme != Https {
		t.Fatalf("req = %+v", req)
	}
	if req.Body != "a: b" {
		t.Fatalf("body = %q", req.Body)
	}
}

func TestParseMessageEmpty(t *testing.T) {
	req := ParseMessage("   \n  ")
	if req.Method != "" {
		t.Fatalf("expected zero-value Request, got %+v", req)
	}
}
