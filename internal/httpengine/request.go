package httpengine

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	contentTypeURLEncoded = "application/x-www-form-urlencoded"
	contentTypeMultipart  = "multipart/form-data"
)

// bodyLines splits a Request.Body into its `key:value` lines, skipping
// blanks — the shape urlencoded/multipart framing expects as input.
func bodyLines(body string) [][2]string {
	var pairs [][2]string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		pairs = append(pairs, [2]string{line[:idx], line[idx+1:]})
	}
	return pairs
}

// frame renders req into its wire form. The Content-Type header (if
// present) selects the body encoding: x-www-form-urlencoded and multipart
// get special framing of `key:value` body lines; anything else is sent as
// literal concatenated body lines with Content-Length set only when the
// body is non-empty.
func frame(req Request) ([]byte, error) {
	headers := append([]Header(nil), req.Headers...)
	contentType, _ := headerValue(headers, "Content-Type")

	var body []byte
	var err error
	switch {
	case strings.HasPrefix(contentType, contentTypeURLEncoded):
		body = frameURLEncoded(req.Body)
		headers = setHeader(headers, "Content-Length", strconv.Itoa(len(body)))
	case strings.HasPrefix(contentType, contentTypeMultipart):
		var boundary string
		body, boundary, err = frameMultipart(req.Body)
		if err != nil {
			return nil, err
		}
		headers = setHeader(headers, "Content-Type", contentTypeMultipart+"; boundary="+boundary)
		headers = setHeader(headers, "Content-Length", strconv.Itoa(len(body)))
	default:
		body = []byte(strings.Join(strings.Split(strings.TrimRight(req.Body, "\n"), "\n"), ""))
		if len(body) > 0 {
			headers = setHeader(headers, "Content-Length", strconv.Itoa(len(body)))
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s\r\n", req.Method, req.URL.Path, req.Version)
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

func setHeader(headers []Header, name, value string) []Header {
	for i, h := range headers {
		if equalFold(h.Name, name) {
			headers[i].Value = value
			return headers
		}
	}
	return append(headers, Header{Name: name, Value: value})
}

func frameURLEncoded(body string) []byte {
	var parts []string
	for _, kv := range bodyLines(body) {
		parts = append(parts, url.QueryEscape(kv[0])+"="+url.QueryEscape(kv[1]))
	}
	return []byte(strings.Join(parts, "&"))
}

func randomBoundary() (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 32)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

func frameMultipart(body string) ([]byte, string, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	for _, kv := range bodyLines(body) {
		name, value := kv[0], kv[1]
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		if strings.HasPrefix(value, "@") {
			path := value[1:]
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				return nil, "", fmt.Errorf("multipart file %q: %w", path, rerr)
			}
			mimeType := mime.TypeByExtension(filepath.Ext(path))
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			fmt.Fprintf(&buf, "Content-Disposition: form-data; name=%q; filename=%q\r\n", name, filepath.Base(path))
			fmt.Fprintf(&buf, "Content-Type: %s\r\n\r\n", mimeType)
			buf.Write(data)
			buf.WriteString("\r\n")
		} else {
			fmt.Fprintf(&buf, "Content-Disposition: form-data; name=%q\r\n\r\n", name)
			buf.WriteString(value)
			buf.WriteString("\r\n")
		}
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), boundary, nil
}
