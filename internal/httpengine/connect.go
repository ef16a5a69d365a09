package httpengine

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/idna"
)

// connect resolves url's host, races a TCP connection per Happy Eyeballs,
// and for Https wraps the winning stream in TLS with host as SNI. It
// returns the open connection plus the resolve/connect timing components;
// callers never see a raw net error, only *Error with one of the taxonomy
// kinds in errors.go.
func connect(ctx context.Context, url URL, connectTimeout time.Duration) (net.Conn, time.Duration, time.Duration, *Error) {
	host, err := idna.Lookup.ToASCII(url.Host)
	if err != nil {
		return nil, 0, 0, &Error{Kind: InvalidURLHost, Inner: err}
	}

	resolveStart := time.Now()
	ips, lookupErr := net.DefaultResolver.LookupIP(ctx, "ip", host)
	resolve := time.Since(resolveStart)
	if lookupErr != nil || len(ips) == 0 {
		return nil, resolve, 0, &Error{Kind: HostNotFound, Inner: lookupErr}
	}

	raceCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	connectStart := time.Now()
	conn, cerr := connectHappy(raceCtx, ips, url.Port)
	connectElapsed := time.Since(connectStart)
	if cerr != nil {
		if raceCtx.Err() == context.DeadlineExceeded {
			return nil, resolve, connectElapsed, &Error{Kind: ConnectTimeout}
		}
		return nil, resolve, connectElapsed, cerr
	}

	if url.Scheme != Https {
		return conn, resolve, connectElapsed, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
	handshakeCtx, cancelHandshake := context.WithTimeout(ctx, connectTimeout)
	defer cancelHandshake()
	if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
		conn.Close()
		return nil, resolve, connectElapsed, &Error{Kind: TLSHandshakeFailed, Inner: err}
	}
	return tlsConn, resolve, time.Since(connectStart), nil
}

type dialResult struct {
	conn net.Conn
	err  *Error
}

// connectHappy implements Happy Eyeballs: a single address skips the race
// entirely; otherwise addresses are partitioned into IPv6/IPv4 and
// interleaved starting with IPv6, every attempt is raced concurrently, and
// the first successful connection cancels and drains the rest.
func connectHappy(ctx context.Context, ips []net.IP, port int) (net.Conn, *Error) {
	if len(ips) == 1 {
		return dialOne(ctx, ips[0], port)
	}

	ordered := interleaveByFamily(ips)

	raceCtx, cancel := context.WithCancel(ctx)
	results := make(chan dialResult, len(ordered))
	for _, ip := range ordered {
		ip := ip
		go func() {
			conn, err := dialOne(raceCtx, ip, port)
			results <- dialResult{conn: conn, err: err}
		}()
	}

	var firstErr *Error
	for i := 0; i < len(ordered); i++ {
		res := <-results
		if res.err == nil {
			cancel()
			go drain(results, len(ordered)-i-1)
			return res.conn, nil
		}
		if firstErr == nil {
			firstErr = res.err
		}
	}
	cancel()
	if firstErr == nil {
		firstErr = &Error{Kind: NoConnectionAvailable}
	}
	return nil, firstErr
}

func drain(results <-chan dialResult, n int) {
	for i := 0; i < n; i++ {
		if res := <-results; res.conn != nil {
			res.conn.Close()
		}
	}
}

func dialOne(ctx context.Context, ip net.IP, port int) (net.Conn, *Error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return nil, &Error{Kind: ConnectFailed, Inner: err}
	}
	return conn, nil
}

// interleaveByFamily partitions addrs into IPv6/IPv4 and alternates
// starting with IPv6, matching original_source's `rotate` helper.
func interleaveByFamily(addrs []net.IP) []net.IP {
	var v6, v4 []net.IP
	for _, ip := range addrs {
		if ip.To4() == nil {
			v6 = append(v6, ip)
		} else {
			v4 = append(v4, ip)
		}
	}
	out := make([]net.IP, 0, len(addrs))
	for i := 0; i < len(v6) || i < len(v4); i++ {
		if i < len(v6) {
			out = append(out, v6[i])
		}
		if i < len(v4) {
			out = append(out, v4[i])
		}
	}
	return out
}
