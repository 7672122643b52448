package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jb6248/vibelive/config"
	"github.com/jb6248/vibelive/engine"
	"github.com/jb6248/vibelive/metrics"
	"github.com/jb6248/vibelive/render"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "repl" {
		os.Exit(runRepl(os.Args[2:]))
	}

	fs := flag.NewFlagSet("vibelive", flag.ExitOnError)
	srcPath := fs.String("src", "", "grammar source file (required)")
	start := fs.String("start", "", "start symbol, overriding the source's start directive")
	seed := fs.Int64("seed", engine.DefaultSeed, "seed for choice draws")
	entropy := fs.Bool("entropy", false, "seed from system entropy instead of a fixed seed")
	outPath := fs.String("o", "", "write the event timeline as JSON to this path (default stdout)")
	pngPath := fs.String("png", "", "also render a piano-roll PNG to this path")
	_ = fs.Parse(os.Args[1:])

	if *srcPath == "" {
		fmt.Fprintln(os.Stderr, "usage: vibelive -src grammar.vl [-start NAME] [-seed N] [-o events.json] [-png roll.png]")
		fmt.Fprintln(os.Stderr, "       vibelive repl")
		os.Exit(engine.ExitParseError)
	}

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: Could not load .env file: %v", err)
	}
	cfg := config.FromEnv()

	m, err := metrics.Init(cfg.SentryDSN)
	if err != nil {
		log.Printf("⚠️  Warning: Sentry disabled: %v", err)
		m, _ = metrics.Init("")
	}
	defer m.Flush()

	source, err := os.ReadFile(*srcPath)
	if err != nil {
		log.Printf("❌ cannot read %s: %v", *srcPath, err)
		os.Exit(engine.ExitParseError)
	}

	opts := engine.Options{
		Start:   *start,
		Entropy: *entropy,
		Limits:  engine.Limits{MaxDepth: cfg.MaxDepth, MaxEvents: cfg.MaxEvents},
	}
	seedSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})
	if seedSet {
		opts.Seed = seed
	}

	ctx := context.Background()
	began := time.Now()
	events, err := engine.Compile(string(source), opts)
	m.RecordCompile(ctx, *start, time.Since(began), len(events), err == nil)
	if err != nil {
		m.CaptureError(err)
		log.Printf("❌ %v", err)
		m.Flush()
		os.Exit(engine.ExitCode(err))
	}
	log.Printf("✅ compiled %s: %d events", *srcPath, len(events))

	payload, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		log.Printf("❌ encoding events: %v", err)
		os.Exit(engine.ExitParseError)
	}
	if *outPath == "" {
		fmt.Println(string(payload))
	} else if err := os.WriteFile(*outPath, append(payload, '\n'), 0o644); err != nil {
		log.Printf("❌ writing %s: %v", *outPath, err)
		os.Exit(engine.ExitParseError)
	}

	if *pngPath != "" {
		began = time.Now()
		err := render.WritePNG(events, *pngPath)
		m.RecordRender(ctx, *pngPath, time.Since(began), err == nil)
		if err != nil {
			m.CaptureError(err)
			log.Printf("❌ %v", err)
			m.Flush()
			os.Exit(engine.ExitParseError)
		}
		log.Printf("✅ wrote piano roll to %s", *pngPath)
	}
}
