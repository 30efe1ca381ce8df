// Command cracken-head is the dispatcher entry point: it bootstraps the
// queue server, launches workers over SSH, feeds them preterminals from
// the enumerator, and prints a final run report on completion or SIGINT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fiddeb/cracken-go/internal/artifact"
	"github.com/fiddeb/cracken-go/internal/bullpen"
	"github.com/fiddeb/cracken-go/internal/config"
	"github.com/fiddeb/cracken-go/internal/opsapi"
	"github.com/fiddeb/cracken-go/internal/resultstore"
	"github.com/fiddeb/cracken-go/internal/sshlaunch"
	"github.com/fiddeb/cracken-go/pkg/pcfg"
	"golang.org/x/crypto/ssh"
)

func main() {
	configPath := flag.String("config", "", "path to dispatcher YAML config")
	baseStructuresPath := flag.String("bases", "base-structures.txt", "path to base-structures artifact")
	grammarPath := flag.String("grammar", "grammar.txt", "path to grammar artifact")
	workerEntryPoint := flag.String("worker-entry", "./cracken-worker", "remote worker entry point command")
	orderingMode := flag.String("ordering", "neg-log-prob", "enumerator ordering surrogate: neg-log-prob or one-minus-prob")
	maxHeap := flag.Int("max-heap", 0, "cap on enumerator heap size, 0 for unbounded")
	opsAddr := flag.String("ops-addr", "", "if set, bind the operator status HTTP server here")
	resultDBPath := flag.String("result-db", "", "if set, persist run events to this sqlite file")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("-config is required")
	}
	cfg, err := config.LoadDispatcherConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if len(cfg.Hosts) == 0 {
		log.Fatal("dispatcher config lists no hosts")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	bases, err := artifact.ReadBaseStructuresFile(*baseStructuresPath)
	if err != nil {
		log.Fatalf("loading base structures: %v", err)
	}
	grammar, err := artifact.ReadGrammarFile(*grammarPath)
	if err != nil {
		log.Fatalf("loading grammar: %v", err)
	}

	mode := pcfg.NegLogProb
	if *orderingMode == "one-minus-prob" {
		mode = pcfg.OneMinusProb
	}
	enumerator := pcfg.NewEnumerator(bases, grammar, mode, *maxHeap)

	dc := bullpen.NewDispatcherContext(logger)
	if err := dc.Bootstrap(cfg.ServerAddr); err != nil {
		log.Fatalf("bootstrapping dispatcher: %v", err)
	}
	defer dc.Shutdown()

	bp, err := bullpen.New(dc)
	if err != nil {
		log.Fatalf("registering bullpen instance: %v", err)
	}
	defer bp.Close()

	var store *resultstore.Store
	if *resultDBPath != "" {
		store, err = resultstore.New(resultstore.DefaultConfig(*resultDBPath))
		if err != nil {
			log.Fatalf("opening result store: %v", err)
		}
		defer store.Close()
		bp.OnStatus = func(text string) {
			store.RecordStatus(bp.RunID().String(), bp.QueueID(), text)
		}
	}

	hosts, err := sshHostConfigs(cfg)
	if err != nil {
		log.Fatalf("loading ssh credentials: %v", err)
	}

	serverHost, serverPort, err := splitHostPort(dc.ServerAddr())
	if err != nil {
		log.Fatalf("determining queue server address: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report := newReport(&bp.Stats)

	go func() {
		<-ctx.Done()
		fmt.Print(report())
		os.Exit(0)
	}()

	if *opsAddr != "" {
		ops := opsapi.NewServer(*opsAddr, bp, bp)
		go func() {
			if err := ops.Start(); err != nil {
				logger.Warn("ops API server stopped", "error", err)
			}
		}()
	}

	log.Printf("Launching %d workers", len(hosts))
	bp.Launch(ctx, hosts, *workerEntryPoint, serverHost, serverPort)

	preterminalsGenerated := 0
	if err := bp.Feed(ctx, func() (string, bool) {
		pt, ok := enumerator.Next()
		if ok {
			preterminalsGenerated++
		}
		return pt, ok
	}); err != nil {
		log.Fatalf("feeding enumerator output: %v", err)
	}

	if err := bp.KillWorkers(ctx); err != nil {
		log.Fatalf("killing workers: %v", err)
	}
	fmt.Printf("All %d tasks queued.\n", preterminalsGenerated)

	if err := bp.Join(time.Duration(cfg.JoinTimeoutSeconds) * time.Second); err != nil {
		log.Printf("join did not complete cleanly: %v", err)
	}

	fmt.Print(report())
}

// sshHostConfigs loads the shared ssh signer once and builds a HostConfig
// per configured host.
func sshHostConfigs(cfg config.DispatcherConfig) ([]sshlaunch.HostConfig, error) {
	keyData, err := os.ReadFile(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key %s: %w", cfg.SSHKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key %s: %w", cfg.SSHKeyPath, err)
	}

	hosts := make([]sshlaunch.HostConfig, 0, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hosts = append(hosts, sshlaunch.HostConfig{
			Addr:            h.Addr,
			User:            h.User,
			Signer:          signer,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			WorkDir:         cfg.WorkDir,
			VenvDir:         cfg.VenvDir,
		})
	}
	return hosts, nil
}

// splitHostPort splits the address the queue server actually bound,
// which matters when the configured server_addr requested an ephemeral
// port (":0").
func splitHostPort(bound string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(bound)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parsing port from %q: %w", bound, err)
	}
	return host, port, nil
}

// newReport closes over stats and renders the end-of-run summary report.
func newReport(stats *bullpen.RunStats) func() string {
	return func() string {
		return fmt.Sprintf(
			"\nCracken Report:\n"+
				"  Result:          %s\n"+
				"  Runtime:         %s\n"+
				"  Discovery Time:  %s\n"+
				"  Time to Queue:   %s\n"+
				"  Exhaustion Time: %s\n"+
				"  Attempts:        %d\n"+
				"  Preterminals:    %d\n"+
				"  Hosts:           %d\n",
			resultOrNA(stats),
			time.Since(stats.Start),
			zeroIfUnset(stats.FirstSolution, stats.Start),
			zeroIfUnset(stats.FullyQueuedAt, stats.Start),
			zeroIfUnset(stats.ExhaustedAt, stats.Start),
			stats.Attempts,
			stats.PreterminalCount,
			stats.HostCount,
		)
	}
}

func resultOrNA(stats *bullpen.RunStats) string {
	if stats.Found {
		return stats.Solution
	}
	return "N/A"
}

func zeroIfUnset(t, start time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	return t.Sub(start)
}
