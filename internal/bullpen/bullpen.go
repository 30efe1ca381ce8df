// Package bullpen implements the dispatcher: it owns the authenticated
// queue server, launches workers over an authenticated remote shell,
// feeds them preterminals, and aggregates STATUS/RESULT traffic back to
// the caller.
package bullpen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/fiddeb/cracken-go/internal/queueserver"
)

// queueIDAlphabet is the character set the rejection-sampled queue id is
// drawn from: a random alphabetic string, upper and lower case.
const queueIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DispatcherContext holds the state a coordinator process keeps across
// every run it drives: the shared secret, the queue server, and the
// bootstrap once-only guard. It is instantiated once per coordinator
// process and passed by reference to every Bullpen.
type DispatcherContext struct {
	Logger *slog.Logger

	mu          sync.Mutex
	bootstrapped bool
	authkey     string
	server      *queueserver.Server
	serverAddr  string
}

// NewDispatcherContext constructs an un-bootstrapped context.
func NewDispatcherContext(logger *slog.Logger) *DispatcherContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatcherContext{Logger: logger}
}

// Bootstrap generates a cryptographically random shared secret and starts
// the authenticated queue server bound to addr. A second call on the same
// context fails rather than silently rotating the secret out from under
// already-launched workers.
func (dc *DispatcherContext) Bootstrap(addr string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.bootstrapped {
		return errors.New("bullpen: dispatcher context already bootstrapped")
	}

	secret, err := randomSecret(32)
	if err != nil {
		return fmt.Errorf("bullpen: generating shared secret: %w", err)
	}

	srv := queueserver.New(secret, dc.Logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	// Give the listener a moment to bind so Addr() is populated before we
	// report success; a real bind failure surfaces on errCh almost
	// immediately.
	select {
	case err := <-errCh:
		return fmt.Errorf("bullpen: starting queue server: %w", err)
	case <-time.After(50 * time.Millisecond):
	}

	dc.authkey = secret
	dc.server = srv
	dc.serverAddr = srv.Addr()
	dc.bootstrapped = true
	return nil
}

// ServerAddr returns the queue server's bound address. Valid only after
// Bootstrap succeeds.
func (dc *DispatcherContext) ServerAddr() string {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.serverAddr
}

// Shutdown stops the queue server. It is the dispatcher's exclusive
// privilege to do so; Bullpen instances hold only non-owning references.
func (dc *DispatcherContext) Shutdown() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.server != nil {
		dc.server.Stop()
	}
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// randomQueueID rejection-samples a queue id of length n from
// queueIDAlphabet.
func randomQueueID(n int) (string, error) {
	out := make([]byte, n)
	alphabetLen := big.NewInt(int64(len(queueIDAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		out[i] = queueIDAlphabet[idx.Int64()]
	}
	return string(out), nil
}
