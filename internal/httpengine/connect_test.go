package httpengine

import (
	"net"
	"testing"
)

func TestInterleaveByFamily(t *testing.T) {
	v4 := func(s string) net.IP { return net.ParseIP(s).To4() }
	v6 := func(s string) net.IP { return net.ParseIP(s) }

	tests := []struct {
		name string
		in   []net.IP
		want []net.IP
	}{
		{
			name: "even",
			in:   []net.IP{v4("1.1.1.1"), v6("::1"), v4("2.2.2.2"), v6("::2")},
			want: []net.IP{v6("::1"), v4("1.1.1.1"), v6("::2"), v4("2.2.2.2")},
		},
		{
			name: "more ipv4",
			in:   []net.IP{v4("1.1.1.1"), v4("2.2.2.2"), v6("::1")},
			want: []net.IP{v6("::1"), v4("1.1.1.1"), v4("2.2.2.2")},
		},
		{
			name: "only ipv4",
			in:   []net.IP{v4("1.1.1.1"), v4("2.2.2.2")},
			want: []net.IP{v4("1.1.1.1"), v4("2.2.2.2")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := interleaveByFamily(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Fatalf("index %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConnectHappySingleAddressFastPath(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	conn, cerr := connectHappy(t.Context(), []net.IP{addr.IP}, addr.Port)
	if cerr != nil {
		t.Fatalf("connectHappy() error = %v", cerr)
	}
	conn.Close()
}

func TestConnectHappyAllAttemptsFail(t *testing.T) {
	_, cerr := connectHappy(t.Context(), []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}, 1)
	if cerr == nil {
		t.Fatal("expected connectHappy to fail against a closed port")
	}
}
