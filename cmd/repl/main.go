// Command repl is an interactive Prolog toplevel.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/brunokim/prolog-engine/engine"
)

var (
	consultFiles []string
	initialQuery string
	iterLimit    int
)

func main() {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive Prolog toplevel",
		RunE:  run,
	}
	cmd.Flags().StringSliceVar(&consultFiles, "consult", nil, "files to consult, in order")
	cmd.Flags().StringVar(&initialQuery, "query", "", "initial query to issue")
	cmd.Flags().IntVar(&iterLimit, "iter-limit", 0, "instruction budget per query (0 = unlimited)")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type ctx struct {
	machine   *engine.Machine
	readline  *readline.Instance
	interrupt chan os.Signal
}

func run(cmd *cobra.Command, args []string) error {
	m := engine.Build(engine.Config{IterLimit: iterLimit})
	for _, file := range consultFiles {
		bs, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if err := m.ConsultModule(file, string(bs)); err != nil {
			return err
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT)

	if initialQuery != "" {
		runQuery(m, initialQuery, interrupt, nil)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "?- ",
		HistoryFile:            "/tmp/prolog-repl-history",
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	ctx := ctx{machine: m, readline: rl, interrupt: interrupt}
	ctx.mainLoop()
	return nil
}

func (ctx ctx) mainLoop() {
	for {
		query, isClose := ctx.readQuery()
		if isClose {
			return
		}
		runQuery(ctx.machine, query, ctx.interrupt, ctx.readline)
	}
}

func (ctx ctx) readQuery() (string, bool) {
	ctx.readline.SetPrompt("?- ")
	var lines []string
	for {
		line, err := ctx.readline.Readline()
		if err != nil {
			return "", true
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
		if !strings.HasSuffix(line, ".") {
			ctx.readline.SetPrompt("|  ")
			continue
		}
		break
	}
	query := strings.Join(lines, " ")
	ctx.readline.SaveHistory(query)
	return query, false
}

// runQuery enumerates outcomes until the user stops with '.', the
// solutions run out, or SIGINT arrives.
func runQuery(m *engine.Machine, query string, interrupt chan os.Signal, rl *readline.Instance) {
	handle, err := m.RunQuery(query)
	if err != nil {
		log.Print(err)
		return
	}
	defer handle.Close()
	for {
		select {
		case <-interrupt:
			handle.Close()
			fmt.Println("interrupted.")
			return
		default:
		}
		switch outcome := handle.Next().(type) {
		case engine.True:
			fmt.Println("true.")
		case engine.False:
			fmt.Println("false.")
			return
		case engine.Bindings:
			fmt.Println(outcome)
		case engine.Exception:
			fmt.Printf("uncaught exception: %v\n", outcome.Ball)
			return
		case engine.Halted:
			os.Exit(outcome.Code)
		case engine.Exhausted:
			return
		}
		if rl == nil || !readCommand(rl) {
			return
		}
	}
}

// readCommand reads ';' (next solution) or '.' (stop).
func readCommand(rl *readline.Instance) bool {
	for {
		rl.SetPrompt("")
		line, err := rl.Readline()
		if err != nil {
			return false
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line == ";" {
			return true
		}
		if line == "." {
			return false
		}
		log.Print("Expecting '.' or ';'")
	}
}
