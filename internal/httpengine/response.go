package httpengine

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// parseResponse reads one HTTP/1.1 response from r. firstByte is the
// instant the status line's first byte arrived (used by the caller to
// derive the delay component); lastByte is the instant the body finished.
// Only Content-Length-delimited and read-until-EOF bodies are supported —
// chunked transfer-encoding and compressed bodies are out of scope.
func parseResponse(r *bufio.Reader) (resp Response, firstByte, lastByte time.Time, err error) {
	first, err := r.ReadByte()
	if err != nil {
		return Response{}, time.Time{}, time.Time{}, &Error{Kind: ReadFailed, Inner: err}
	}
	firstByte = time.Now()
	if err := r.UnreadByte(); err != nil {
		return Response{}, firstByte, firstByte, &Error{Kind: ReadFailed, Inner: err}
	}
	_ = first

	statusLine, err := readLine(r)
	if err != nil {
		return Response{}, firstByte, firstByte, &Error{Kind: ReadFailed, Inner: err}
	}
	version, status, reason := parseStatusLine(statusLine)

	var headers []Header
	for {
		line, err := readLine(r)
		if err != nil {
			return Response{}, firstByte, firstByte, &Error{Kind: ReadFailed, Inner: err}
		}
		if line == "" {
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		headers = append(headers, Header{Name: strings.TrimSpace(line[:idx]), Value: strings.TrimSpace(line[idx+1:])})
	}

	var bodyBytes []byte
	if cl, ok := headerValue(headers, "Content-Length"); ok {
		n, perr := strconv.Atoi(strings.TrimSpace(cl))
		if perr == nil {
			bodyBytes = make([]byte, n)
			if _, err := io.ReadFull(r, bodyBytes); err != nil {
				return Response{}, firstByte, firstByte, &Error{Kind: ReadFailed, Inner: err}
			}
		}
	} else {
		bodyBytes, err = io.ReadAll(r)
		if err != nil {
			return Response{}, firstByte, firstByte, &Error{Kind: ReadFailed, Inner: err}
		}
	}
	lastByte = time.Now()

	body := string(bodyBytes)
	if !utf8.ValidString(body) {
		body = fmt.Sprintf("<invalid utf-8: %d bytes>", len(bodyBytes))
	}

	return Response{Version: version, Status: status, Reason: reason, Headers: headers, Body: body}, firstByte, lastByte, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseStatusLine(line string) (version string, status int, reason string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "HTTP/1.1", 0, ""
	}
	version = parts[0]
	status, _ = strconv.Atoi(parts[1])
	if len(parts) == 3 {
		reason = parts[2]
	}
	return version, status, reason
}
