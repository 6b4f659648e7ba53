// Command xdelta3-merge is the CLI over the delta-merge core: it folds
// a source-relative delta and a target-relative delta (or an entire
// chain of them) into one equivalent delta, without ever materializing
// the intermediate versions.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/google/shlex"
	"golang.org/x/crypto/ssh"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	"github.com/morfoh/xdelta3/src/delta/merge"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
	"github.com/morfoh/xdelta3/src/echo/deltastore"
	"github.com/morfoh/xdelta3/src/golf/mergeconfig"
	"github.com/morfoh/xdelta3/src/india/chainsvc"
	"github.com/morfoh/xdelta3/src/india/mergesvc"
	"github.com/morfoh/xdelta3/src/india/remote"
)

var logger = log.New(os.Stderr, "xdelta3-merge: ", log.Lmicroseconds)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error

	switch os.Args[1] {
	case "merge":
		err = runMerge(os.Args[2:])
	case "chain":
		err = runChain(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  xdelta3-merge merge [--confirm] [--remote user@host:port -i KEY] A B -o C
  xdelta3-merge chain [--confirm] D1 D2 ... DN -o C
  xdelta3-merge batch FILE
  xdelta3-merge serve ADDR`)
}

// loadState opens a deltastore-format delta file at path. If remoteAddr
// is non-empty, path is instead read from that host over SFTP using
// the identity file at identityPath.
func loadState(path, remoteAddr, identityPath string) (*wholestate.State, uint64, error) {
	if remoteAddr == "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, errors.Wrap(err)
		}
		defer f.Close()

		state, sourceLen, _, err := deltastore.Read(f)
		return state, sourceLen, err
	}

	key, err := os.ReadFile(identityPath)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading identity file %s", identityPath)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, 0, errors.Wrap(err)
	}

	user, host := splitUserHost(remoteAddr)

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	data, err := remote.FetchDelta(host, config, path)
	if err != nil {
		return nil, 0, err
	}

	state, sourceLen, _, err := deltastore.Read(strings.NewReader(string(data)))
	return state, sourceLen, err
}

func splitUserHost(spec string) (user, host string) {
	if at := strings.IndexByte(spec, '@'); at >= 0 {
		return spec[:at], spec[at+1:]
	}

	return "", spec
}

// confirmOverwrite shows an interactive yes/no prompt before a merge
// would overwrite path, unless skip is true or path doesn't exist yet.
func confirmOverwrite(path string, skip bool) (bool, error) {
	if skip {
		return true, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return true, nil
	}

	proceed := false

	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite it?", path)).
			Affirmative("Yes").
			Negative("No").
			Value(&proceed),
	))

	if err := form.Run(); err != nil {
		return false, errors.Wrap(err)
	}

	return proceed, nil
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)

	output := fs.String("o", "", "output delta path")
	confirm := fs.Bool("confirm", false, "skip the overwrite confirmation prompt")
	remoteAddr := fs.String("remote", "", "user@host:port to fetch inputs from over SFTP")
	identity := fs.String("i", "", "SSH private key path, required with --remote")

	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err)
	}

	if fs.NArg() != 2 || *output == "" {
		return errors.Errorf("merge requires exactly two delta paths and -o")
	}

	// C's SOURCE copies reference A's source, so C is written with A's
	// source length.
	a, sourceLen, err := loadState(fs.Arg(0), *remoteAddr, *identity)
	if err != nil {
		return errors.Wrapf(err, "loading %s", fs.Arg(0))
	}

	b, _, err := loadState(fs.Arg(1), *remoteAddr, *identity)
	if err != nil {
		return errors.Wrapf(err, "loading %s", fs.Arg(1))
	}

	logger.Printf("Phase 1: merging %s (%s) against %s (%s)",
		fs.Arg(1), humanize.Bytes(b.Length), fs.Arg(0), humanize.Bytes(a.Length))

	c, err := merge.Merge(a, b)
	if err != nil {
		return errors.Wrap(err)
	}

	if err := c.Validate(); err != nil {
		return errors.Wrap(err)
	}

	proceed, err := confirmOverwrite(*output, *confirm)
	if err != nil {
		return err
	}
	if !proceed {
		logger.Printf("aborted: %s left untouched", *output)
		return nil
	}

	logger.Printf("Phase 2: writing %s (%s)", *output, humanize.Bytes(c.Length))

	return writeState(*output, c, sourceLen)
}

func writeState(path string, state *wholestate.State, sourceLen uint64) (err error) {
	config := mergeconfig.Default()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err)
	}
	defer errors.DeferredCloser(&err, f)

	_, createdAt, err := deltastore.Write(f, config.DefaultHashFormat, config.CompressionType, state, sourceLen)
	if err == nil {
		logger.Printf("wrote %s at %s", path, createdAt.Time().UTC().Format(time.RFC3339))
	}

	return err
}

func runChain(args []string) error {
	fs := flag.NewFlagSet("chain", flag.ContinueOnError)

	output := fs.String("o", "", "output delta path")
	confirm := fs.Bool("confirm", false, "skip the overwrite confirmation prompt")
	serveAddr := fs.String("serve", "", "also expose compaction progress at this address")
	workers := fs.Int("workers", 4, "bounded worker pool size for independent merges")

	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err)
	}

	if fs.NArg() < 1 || *output == "" {
		return errors.Errorf("chain requires at least one delta path and -o")
	}

	var progressServer *mergesvc.Server
	if *serveAddr != "" {
		progressServer = mergesvc.NewServer()

		go func() {
			if err := http.ListenAndServe(*serveAddr, progressServer.Handler()); err != nil {
				logger.Printf("serve: %v", err)
			}
		}()
	}

	logger.Printf("Phase 1: loading %d chain links", fs.NArg())

	// The compacted delta's SOURCE copies reference the first link's
	// source, so it is written with that link's source length.
	var sourceLen uint64

	deltas := make([]*wholestate.State, fs.NArg())
	for i := 0; i < fs.NArg(); i++ {
		state, linkSourceLen, err := loadState(fs.Arg(i), "", "")
		if err != nil {
			return errors.Wrapf(err, "loading %s", fs.Arg(i))
		}
		if i == 0 {
			sourceLen = linkSourceLen
		}
		deltas[i] = state
	}

	logger.Printf("Phase 2: compacting chain with %d workers", *workers)

	compacted, err := chainsvc.Compact(deltas, chainsvc.Options{
		Workers: *workers,
		OnProgress: func(total, done int) {
			if progressServer != nil {
				progressServer.Update("default", mergesvc.Progress{RoundSize: total, RoundDone: done})
			}
		},
	})
	if progressServer != nil {
		progressServer.Finish("default", err)
	}
	if err != nil {
		return errors.Wrap(err)
	}

	proceed, err := confirmOverwrite(*output, *confirm)
	if err != nil {
		return err
	}
	if !proceed {
		logger.Printf("aborted: %s left untouched", *output)
		return nil
	}

	logger.Printf("Phase 3: writing compacted chain to %s (%s)", *output, humanize.Bytes(compacted.Length))

	return writeState(*output, compacted, sourceLen)
}

func runBatch(args []string) error {
	if len(args) != 1 {
		return errors.Errorf("batch requires exactly one file path")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err)
	}

	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields, err := shlex.Split(line)
		if err != nil {
			return errors.Wrapf(err, "batch line %d", lineNum+1)
		}

		if len(fields) == 0 {
			continue
		}

		logger.Printf("batch line %d: %s", lineNum+1, line)

		var cmdErr error
		switch fields[0] {
		case "merge":
			cmdErr = runMerge(fields[1:])
		case "chain":
			cmdErr = runChain(fields[1:])
		default:
			cmdErr = errors.Errorf("unsupported batch command: %q", fields[0])
		}

		if cmdErr != nil {
			return errors.Wrapf(cmdErr, "batch line %d", lineNum+1)
		}
	}

	return nil
}

func runServe(args []string) error {
	if len(args) != 1 {
		return errors.Errorf("serve requires exactly one address")
	}

	server := mergesvc.NewServer()

	logger.Printf("serving chain-compaction progress on %s", args[0])

	return http.ListenAndServe(args[0], server.Handler())
}
