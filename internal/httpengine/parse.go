package httpengine

import "strings"

// ParseMessage converts a raw request message (the lowered request
// template's first line plus `Name: Value` header lines, a blank line,
// then body lines) into a Request ready for Send. The first word of the
// first line is the method; a missing URL defaults to
// http://localhost:80/, a missing version to HTTP/1.1, and a missing/blank
// first line yields the zero Request.
func ParseMessage(message string) Request {
	lines := strings.Split(strings.TrimSpace(message), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Request{}
	}

	fields := strings.Fields(lines[0])
	method := "GET"
	if len(fields) > 0 {
		method = fields[0]
	}
	url := URL{Scheme: Http, Host: "localhost", Port: 80, Path: "/"}
	if len(fields) > 1 {
		url = ParseURL(fields[1])
	}
	version := "HTTP/1.1"
	if len(fields) > 2 {
		version = fields[2]
	}

	var headers []Header
	i := 1
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		headers = append(headers, Header{Name: strings.TrimSpace(line[:idx]), Value: strings.TrimSpace(line[idx+1:])})
	}

	body := strings.Join(lines[i:], "\n")
	return Request{Method: method, URL: url, Version: version, Headers: headers, Body: body}
}
