// Command cracken-worker is the worker entry point: it loads a glossary,
// registers a SHA-256 challenge-response hash check and a default set of
// 1337-speak mangling rules, then drives internal/worker's loop until it
// receives a TERM.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fiddeb/cracken-go/internal/artifact"
	"github.com/fiddeb/cracken-go/internal/worker"
	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

// newChallengeResponseChecker builds a HashChecker that prefixes every
// guess with "<prefix>:<challenge>:", SHA-256's it, and compares the result
// hex-encoded against the target hash.
func newChallengeResponseChecker(prefix, challenge, targetHashHex string) pcfg.HashChecker {
	guessFormat := prefix + ":" + challenge + ":"
	return func(guess string) bool {
		sum := sha256.Sum256([]byte(guessFormat + guess))
		return hex.EncodeToString(sum[:]) == targetHashHex
	}
}

// defaultMangleRules returns a default rule set: four leet-speak
// substitutions plus two suffix appenders.
func defaultMangleRules() []pcfg.Rule {
	return []pcfg.Rule{
		func(s string) string { return strings.ReplaceAll(s, "a", "4") },
		func(s string) string { return strings.ReplaceAll(s, "e", "3") },
		func(s string) string { return strings.ReplaceAll(s, "i", "1") },
		func(s string) string { return strings.ReplaceAll(s, "o", "0") },
		func(s string) string { return s + "!" },
		func(s string) string { return s + "?" },
	}
}

func main() {
	serverHost := flag.String("host", "", "queue server host (bootstrap arg 2)")
	serverPort := flag.Int("port", 0, "queue server port (bootstrap arg 3)")
	queueID := flag.String("queue", "", "queue id assigned by the dispatcher (bootstrap arg 4)")
	glossaryPath := flag.String("glossary", "glossary.txt", "path to the glossary artifact")
	targetHash := flag.String("target-hash", "", "hex-encoded SHA-256 target hash")
	challenge := flag.String("challenge", "", "challenge string embedded in the guess format")
	prefix := flag.String("prefix", "", "prefix embedded in the guess format")
	flag.Parse()

	// The bootstrap fragment passes host, port and queue id positionally.
	if args := flag.Args(); len(args) == 3 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("parsing port argument %q: %v", args[1], err)
		}
		*serverHost, *serverPort, *queueID = args[0], port, args[2]
	}

	authkey := os.Getenv("BULLPEN_AUTHKEY")
	if authkey == "" {
		log.Fatal("BULLPEN_AUTHKEY is not set")
	}
	if *serverHost == "" || *serverPort == 0 || *queueID == "" {
		log.Fatal("-host, -port, and -queue are required")
	}
	serverAddr := *serverHost + ":" + strconv.Itoa(*serverPort)

	glossary, err := artifact.ReadGlossaryFile(*glossaryPath)
	if err != nil {
		log.Fatalf("loading glossary: %v", err)
	}

	mangler, err := pcfg.NewManglingEngine(defaultMangleRules()...)
	if err != nil {
		log.Fatalf("building mangling engine: %v", err)
	}

	check := newChallengeResponseChecker(*prefix, *challenge, *targetHash)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("Starting worker against %s, queue %s", serverAddr, *queueID)
	if err := worker.Run(ctx, worker.Config{
		ServerAddr: serverAddr,
		AuthKey:    authkey,
		QueueID:    *queueID,
		Glossary:   glossary,
		Mangler:    mangler,
		Check:      check,
		Logger:     logger,
	}); err != nil {
		log.Fatalf("worker exited with error: %v", err)
	}
	log.Println("worker exited cleanly")
}
