// Package remote fetches a delta file named as a merge input from a
// remote host over SFTP, the one remote-I/O collaborator spec.md's
// scope note leaves to "the CLI, I/O, and file-format envelope
// handling" outside the merge core itself.
package remote

import (
	"io"
	"net"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/morfoh/xdelta3/src/alfa/errors"
)

// Client is an open SSH connection with an SFTP subsystem layered on
// top, used to read one or more remote delta files.
type Client struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Dial opens an SSH connection to addr (host:port) authenticating with
// config, then starts an SFTP session over it.
func Dial(addr string, config *ssh.ClientConfig) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, errors.Wrapf(err, "ssh handshake with %s", addr)
	}

	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errors.Wrapf(err, "starting sftp session with %s", addr)
	}

	return &Client{ssh: sshClient, sftp: sftpClient}, nil
}

// Open returns a reader over the remote file at path. The caller must
// Close it; closing does not affect the underlying Client, which may
// be reused for further Open calls.
func (c *Client) Open(path string) (io.ReadCloser, error) {
	f, err := c.sftp.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening remote file %s", path)
	}

	return f, nil
}

// Stat returns the remote file's size, used by callers that want to
// report download progress before reading.
func (c *Client) Stat(path string) (int64, error) {
	info, err := c.sftp.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "statting remote file %s", path)
	}

	return info.Size(), nil
}

// Close shuts down the SFTP session and the underlying SSH connection.
func (c *Client) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()

	if sftpErr != nil {
		return errors.Wrap(sftpErr)
	}

	if sshErr != nil {
		return errors.Wrap(sshErr)
	}

	return nil
}

// FetchDelta opens addr over SFTP, reads path in full, and closes the
// connection, returning the delta file's raw bytes — the shape
// cmd/xdelta3-merge's --remote flag needs for a one-shot fetch.
func FetchDelta(addr string, config *ssh.ClientConfig, path string) ([]byte, error) {
	client, err := Dial(addr, config)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	r, err := client.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading remote file %s", path)
	}

	return data, nil
}
