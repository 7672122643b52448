package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jb6248/vibelive/engine"
	"github.com/jb6248/vibelive/grammar"
	"github.com/jb6248/vibelive/music"
	"github.com/jb6248/vibelive/render"
)

const replHelp = `Enter productions one per line, e.g.  melody = :c :e :g
Redefining a name replaces its production.

Commands:
  :start NAME   set the start symbol
  :seed N       set the seed for choice draws
  :play         expand the grammar and print the timeline
  :show         print the current grammar source
  :png PATH     expand and render a piano roll to PATH
  :load PATH    append productions from a file
  :clear        discard all productions
  :help         this text
  :quit         exit`

type replSession struct {
	start string
	seed  int64
	lines []string
}

func (s *replSession) source() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start %s\n", s.start)
	for _, ln := range s.lines {
		b.WriteString(ln)
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *replSession) compile() ([]music.Event, error) {
	seed := s.seed
	return engine.Compile(s.source(), engine.Options{Seed: &seed})
}

func runRepl(args []string) int {
	fs := flag.NewFlagSet("vibelive repl", flag.ExitOnError)
	seed := fs.Int64("seed", engine.DefaultSeed, "seed for choice draws")
	_ = fs.Parse(args)

	session := &replSession{start: "song", seed: *seed}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".vibelive_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("vibelive repl: start symbol %q, seed %d. :help for commands.\n", session.start, session.seed)

	for {
		input, err := line.Prompt("vibelive> ")
		if err != nil {
			if err == liner.ErrPromptAborted || errors.Is(err, io.EOF) {
				fmt.Println("bye")
				return engine.ExitOK
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return engine.ExitParseError
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if done := session.command(input); done {
				return engine.ExitOK
			}
			continue
		}
		session.addLine(input)
	}
}

func (s *replSession) command(input string) (quit bool) {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case ":quit", ":q", ":exit":
		fmt.Println("bye")
		return true
	case ":help":
		fmt.Println(replHelp)
	case ":start":
		if rest == "" {
			fmt.Printf("start symbol is %q\n", s.start)
			break
		}
		s.start = rest
	case ":seed":
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			fmt.Printf("bad seed %q\n", rest)
			break
		}
		s.seed = n
	case ":show":
		fmt.Print(s.source())
	case ":clear":
		s.lines = nil
		fmt.Println("cleared")
	case ":load":
		data, err := os.ReadFile(rest)
		if err != nil {
			fmt.Printf("cannot read %s: %v\n", rest, err)
			break
		}
		for _, ln := range strings.Split(string(data), "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" || strings.HasPrefix(ln, "//") {
				continue
			}
			if name, ok := strings.CutPrefix(ln, "start "); ok {
				s.start = strings.TrimSpace(name)
				continue
			}
			s.lines = append(s.lines, ln)
		}
		fmt.Printf("loaded %s\n", rest)
	case ":play", ":expand":
		events, err := s.compile()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		printTimeline(events)
	case ":png":
		if rest == "" {
			fmt.Println("usage: :png PATH")
			break
		}
		events, err := s.compile()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		if err := render.WritePNG(events, rest); err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		fmt.Printf("wrote %s\n", rest)
	default:
		fmt.Printf("unknown command %s (:help for commands)\n", cmd)
	}
	return false
}

// addLine accepts a single production, checking it parses before keeping it.
func (s *replSession) addLine(input string) {
	if name, ok := strings.CutPrefix(input, "start "); ok {
		s.start = strings.TrimSpace(name)
		return
	}
	if !strings.Contains(input, "=") {
		fmt.Println("expected a production like  name = :c :e :g  (:help for commands)")
		return
	}
	probe := fmt.Sprintf("start %s\n%s\n", s.start, input)
	if _, err := grammar.Parse(probe); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	s.lines = append(s.lines, input)
}

func printTimeline(events []music.Event) {
	if len(events) == 0 {
		fmt.Println("(no events)")
		return
	}
	for _, ev := range events {
		pitches := "rest"
		if !ev.IsRest() {
			names := make([]string, len(ev.Pitches))
			for i, p := range ev.Pitches {
				names[i] = p.String()
			}
			pitches = strings.Join(names, "+")
		}
		fmt.Printf("  %8s  +%-6s  %-12s %s v%d\n",
			ev.Onset, ev.Duration, pitches, ev.Instrument, ev.Velocity)
	}
	fmt.Printf("%d events, total %s ticks\n", len(events), music.TotalDuration(events))
}
