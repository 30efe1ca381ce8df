// Command cracken-classify is the classifier entry point: it reads a
// training corpus and writes the three artifacts (base-structures,
// grammar, glossary) a cracking run needs.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/fiddeb/cracken-go/internal/artifact"
	"github.com/fiddeb/cracken-go/internal/config"
	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

func main() {
	configPath := flag.String("config", "", "path to classifier YAML config")
	corpusPath := flag.String("corpus", "", "path to training corpus (overrides config)")
	flag.Parse()

	var cfg config.ClassifierConfig
	if *configPath != "" {
		loaded, err := config.LoadClassifierConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if *corpusPath != "" {
		cfg.CorpusPath = *corpusPath
	}
	if cfg.CorpusPath == "" {
		log.Fatal("no corpus path given: pass -corpus or -config with corpus_path set")
	}
	if cfg.BaseStructuresPath == "" {
		cfg.BaseStructuresPath = "base-structures.txt"
	}
	if cfg.GrammarPath == "" {
		cfg.GrammarPath = "grammar.txt"
	}
	if cfg.GlossaryPath == "" {
		cfg.GlossaryPath = "glossary.txt"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	log.Printf("Classifying corpus %s", cfg.CorpusPath)

	f, err := os.Open(cfg.CorpusPath)
	if err != nil {
		log.Fatalf("opening corpus: %v", err)
	}
	defer f.Close()

	result, err := pcfg.Classify(f, logger)
	if err != nil {
		log.Fatalf("classifying corpus: %v", err)
	}

	if result.LinesSkipped > 0 {
		log.Printf("skipped %d non-UTF-8 lines", result.LinesSkipped)
	}

	if err := artifact.WriteBaseStructuresFile(cfg.BaseStructuresPath, result.Bases); err != nil {
		log.Fatalf("writing base structures: %v", err)
	}
	if err := artifact.WriteGrammarFile(cfg.GrammarPath, result.Grammar); err != nil {
		log.Fatalf("writing grammar: %v", err)
	}
	if err := artifact.WriteGlossaryFile(cfg.GlossaryPath, result.Glossary); err != nil {
		log.Fatalf("writing glossary: %v", err)
	}

	log.Printf("Wrote %s, %s, %s", cfg.BaseStructuresPath, cfg.GrammarPath, cfg.GlossaryPath)
}
