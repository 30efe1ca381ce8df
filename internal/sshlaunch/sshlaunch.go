// Package sshlaunch opens an authenticated remote shell on a worker host
// and streams it a bootstrap fragment: change directory, optionally
// activate a virtualenv-equivalent, export the shared secret, and start
// a detached worker process.
package sshlaunch

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// HostConfig describes how to reach and bootstrap one worker host.
type HostConfig struct {
	Addr string // host:port, e.g. "worker1.example.com:22"
	User string

	// Signer authenticates the SSH session; callers typically load it from
	// an id_rsa/id_ed25519 file with ssh.ParsePrivateKey.
	Signer ssh.Signer

	// HostKeyCallback validates the remote host key. Production callers
	// should use a real known_hosts-backed callback; ssh.InsecureIgnoreHostKey
	// is acceptable only in test/dev environments.
	HostKeyCallback ssh.HostKeyCallback

	WorkDir string // directory to cd into before launching
	VenvDir string // optional; if set, its bin/activate is sourced first
}

// BootstrapArgs are the arguments passed to the remote worker entry
// point: worker-callable path, server FQDN, server port, queue id.
type BootstrapArgs struct {
	WorkerEntryPoint string // e.g. "./cracken-worker" or a hash-checker name
	ServerHost       string
	ServerPort       int
	QueueID          string
}

// Script renders the remote shell fragment that cds into the working
// directory, optionally activates a venv-equivalent, exports the shared
// secret, and backgrounds the worker so the SSH session can close without
// killing it.
func Script(workDir, venvDir, authkey string, args BootstrapArgs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cd %s\n", shellQuote(workDir))
	if venvDir != "" {
		fmt.Fprintf(&b, "source %s/bin/activate\n", shellQuote(venvDir))
	}
	fmt.Fprintf(&b, "export BULLPEN_AUTHKEY=%s\n", shellQuote(authkey))
	fmt.Fprintf(&b, "nohup %s %s %d %s >/dev/null 2>&1 &\n",
		shellQuote(args.WorkerEntryPoint), shellQuote(args.ServerHost), args.ServerPort, shellQuote(args.QueueID))
	b.WriteString("disown\n")
	return b.String()
}

// shellQuote wraps s in single quotes, escaping any embedded single quote,
// so interpolated host paths and ids can't break out of the fragment.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Launch opens an SSH session to host and runs the bootstrap script built
// from args. The exit code of the remote shell is ignored since the
// worker detaches from the session before it closes.
func Launch(host HostConfig, authkey string, args BootstrapArgs) error {
	clientCfg := &ssh.ClientConfig{
		User:            host.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(host.Signer)},
		HostKeyCallback: host.HostKeyCallback,
	}

	client, err := ssh.Dial("tcp", host.Addr, clientCfg)
	if err != nil {
		return fmt.Errorf("sshlaunch: dial %s: %w", host.Addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("sshlaunch: new session on %s: %w", host.Addr, err)
	}
	defer session.Close()

	script := Script(host.WorkDir, host.VenvDir, authkey, args)
	err = session.Run(script)
	if _, isExitErr := err.(*ssh.ExitError); err != nil && !isExitErr {
		return fmt.Errorf("sshlaunch: launch on %s: %w", host.Addr, err)
	}
	// A non-zero shell exit code is ignored per the bootstrap contract: the
	// worker has already been backgrounded and disowned by the time the
	// shell itself exits.
	return nil
}
