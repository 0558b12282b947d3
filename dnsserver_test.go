package ddnsd_test

import (
	"net"
	"testing"

	"github.com/miekg/dns"
)

// startDNSServer serves handler on a random localhost port and returns its address.
func startDNSServer(t *testing.T, network string, handler dns.HandlerFunc, tsig map[string]string) string {
	t.Helper()
	started := make(chan struct{})
	srv := &dns.Server{
		Handler:           handler,
		TsigSecret:        tsig,
		NotifyStartedFunc: func() { close(started) },
		// the default accept func answers NOTIMP to UPDATE messages
		MsgAcceptFunc: func(dns.Header) dns.MsgAcceptAction { return dns.MsgAccept },
	}

	var addr string
	if network == "tcp" {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %s", err)
		}
		srv.Listener, addr = l, l.Addr().String()
	} else {
		pc, err := net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %s", err)
		}
		srv.PacketConn, addr = pc, pc.LocalAddr().String()
	}

	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })
	return addr
}
