// Package worker implements the cracking worker: it connects to the
// queue server, announces itself, and loops dequeuing preterminals until
// it receives a TERM.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fiddeb/cracken-go/internal/queuepb"
	"github.com/fiddeb/cracken-go/internal/queueserver"
	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

// Config bundles everything a worker process needs to start: where the
// queue server is, which queue pair to use, the shared secret, and the
// domain-specific pieces (glossary, mangling rules, hash check) the
// caller supplies.
type Config struct {
	ServerAddr string
	AuthKey    string
	QueueID    string

	Glossary pcfg.Glossary
	Mangler  *pcfg.ManglingEngine
	Check    pcfg.HashChecker

	Logger *slog.Logger
}

// Run connects to the queue server and drives the worker's event loop
// until it receives a TERM task or ctx is cancelled. It returns nil on a
// clean TERM-triggered exit.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := queueserver.Dial(cfg.ServerAddr, cfg.AuthKey)
	if err != nil {
		return fmt.Errorf("worker: connecting to queue server: %w", err)
	}
	defer client.Close()

	host, _ := os.Hostname()

	if err := client.PutResult(ctx, cfg.QueueID, queuepb.Message{
		Tag:        "STATUS",
		StatusText: fmt.Sprintf("%s: worker started.", host),
	}); err != nil {
		return fmt.Errorf("worker: reporting startup: %w", err)
	}

	for {
		task, err := client.GetTask(ctx, cfg.QueueID)
		if err != nil {
			return fmt.Errorf("worker: fetching task: %w", err)
		}

		switch task.Tag {
		case "TASK":
			attempts, solution, found := pcfg.Crack(task.Preterminal, cfg.Glossary, cfg.Mangler, cfg.Check)
			result := queuepb.Message{Tag: "RESULT", Attempts: int64(attempts)}
			if found {
				result.Solution = solution
				result.HasSolution = true
			}
			if err := client.PutResult(ctx, cfg.QueueID, result); err != nil {
				logger.Warn("failed to report result", "error", err)
			}

		case "TERM":
			if err := client.PutResult(ctx, cfg.QueueID, queuepb.Message{
				Tag:        "STATUS",
				StatusText: fmt.Sprintf("%s: TERM", host),
			}); err != nil {
				logger.Warn("failed to report TERM", "error", err)
			}
			return nil

		default:
			logger.Warn("received unrecognized task tag", "tag", task.Tag)
		}
	}
}
