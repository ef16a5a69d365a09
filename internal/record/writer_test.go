package record

import (
	"bytes"
	"io"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	records := []Record{
		{
			Name: "g",
			Time: Time{Start: 1, End: 2, Total: 1, Resolve: 0, Connect: 0, Write: 0, Delay: 0, Read: 1},
			Request: Request{
				Method:  "GET",
				URL:     "http://example.invalid/",
				Version: "HTTP/1.1",
				Headers: []Header{{Name: "Host", Value: "example.invalid"}},
			},
			Response: Response{Version: "HTTP/1.1", Status: 200, Reason: "OK"},
			Asserts:  []Assert{{Expr: "status == 200", Left: "200", Compare: "==", Right: "200", Result: true}},
		},
		{Name: "h", Error: "host not found"},
	}
	if err := w.Write(records, "t", "task-1", "0"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Meta["fan.codec"] != "null" {
		t.Fatalf("unexpected codec meta: %q", r.Meta["fan.codec"])
	}

	got, err := r.Block()
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if got[i].Name != records[i].Name {
			t.Errorf("record %d: name = %q, want %q", i, got[i].Name, records[i].Name)
		}
		if got[i].Error != records[i].Error {
			t.Errorf("record %d: error = %q, want %q", i, got[i].Error, records[i].Error)
		}
	}
	if got[0].Request.URL != "http://example.invalid/" {
		t.Errorf("request url = %q", got[0].Request.URL)
	}
	if len(got[0].Asserts) != 1 || !got[0].Asserts[0].Result {
		t.Errorf("asserts = %+v", got[0].Asserts)
	}

	if _, err := r.Block(); err != io.EOF {
		t.Fatalf("second Block: got %v, want io.EOF", err)
	}
}

func TestEncodeLongZigZag(t *testing.T) {
	var buf []byte
	buf = encodeLong(27, buf)
	if len(buf) != 1 || buf[0] != 0x36 {
		t.Fatalf("encodeLong(27) = % x, want 36", buf)
	}
}

func TestEncodeBytes(t *testing.T) {
	var buf []byte
	buf = encodeBytes("foo", buf)
	want := []byte{0x06, 'f', 'o', 'o'}
	if !bytes.Equal(buf, want) {
		t.Fatalf("encodeBytes(foo) = % x, want % x", buf, want)
	}
}
