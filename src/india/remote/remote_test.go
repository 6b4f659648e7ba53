package remote_test

import (
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/morfoh/xdelta3/src/india/remote"
)

// TestDialFailsFastOnUnreachableHost covers the connection-refused path
// without depending on any live SFTP server: a listener is opened and
// immediately closed, guaranteeing the port refuses the next
// connection attempt.
func TestDialFailsFastOnUnreachableHost(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	config := &ssh.ClientConfig{
		User:            "test",
		Auth:            []ssh.AuthMethod{ssh.Password("unused")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         time.Second,
	}

	if _, err := remote.Dial(addr, config); err == nil {
		t.Fatal("expected Dial to fail against a closed port")
	}
}

func TestFetchDeltaPropagatesDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	config := &ssh.ClientConfig{
		User:            "test",
		Auth:            []ssh.AuthMethod{ssh.Password("unused")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         time.Second,
	}

	if _, err := remote.FetchDelta(addr, config, "/tmp/whatever"); err == nil {
		t.Fatal("expected FetchDelta to propagate a dial error")
	}
}
