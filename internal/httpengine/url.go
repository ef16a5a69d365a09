// Package httpengine implements a hand-rolled HTTP/1.1 client: URL
// parsing, Happy-Eyeballs TCP/TLS connection establishment, request
// framing for plain/urlencoded/multipart bodies, and response parsing
// with a fine-grained timing breakdown. It deliberately does not use
// net/http — the point of this component is the wire-level mechanics
// net/http hides.
package httpengine

import "strconv"

// Scheme is the URL scheme; only the two this engine speaks.
type Scheme int

const (
	Http Scheme = iota
	Https
)

func (s Scheme) String() string {
	if s == Https {
		return "https"
	}
	return "http"
}

func (s Scheme) defaultPort() int {
	if s == Https {
		return 443
	}
	return 80
}

// URL is the parsed form of a request target.
type URL struct {
	Scheme Scheme
	Host   string
	Port   int
	Path   string
}

// String renders url back to its "scheme://host:port/path" text form,
// always including the port even when it matches the scheme default —
// used to persist a request's target in a Record without keeping the
// original template text around.
func (u URL) String() string {
	return u.Scheme.String() + "://" + u.Host + ":" + strconv.Itoa(u.Port) + u.Path
}

// ParseURL parses text per the engine's deliberately small grammar:
// "scheme://host[:port][/path]". Any missing piece falls back to a
// default (scheme Http, host localhost, port the scheme default, path
// "/"); an out-of-uint16-range port also falls back to the scheme
// default rather than failing. Query and fragment are not split out — they
// remain part of Path.
func ParseURL(text string) URL {
	scheme := Http
	rest := text
	if idx := indexOf(text, "://"); idx >= 0 {
		switch text[:idx] {
		case "https":
			scheme = Https
		default:
			scheme = Http
		}
		rest = text[idx+3:]
	}

	host := "localhost"
	port := scheme.defaultPort()
	path := "/"

	authority := rest
	if idx := indexByte(rest, '/'); idx >= 0 {
		authority = rest[:idx]
		path = rest[idx:]
	}

	if authority != "" {
		if idx := indexByte(authority, ':'); idx >= 0 {
			host = authority[:idx]
			if p, err := strconv.Atoi(authority[idx+1:]); err == nil && p >= 0 && p <= 65535 {
				port = p
			}
		} else {
			host = authority
		}
	}

	return URL{Scheme: scheme, Host: host, Port: port, Path: path}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
