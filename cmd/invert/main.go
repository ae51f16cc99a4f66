// Command invert recovers play records from a Phigros score, or scores a
// record. Flags that are not given are asked for on stdin.
package main

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"score-inverter/internal/config"
	"score-inverter/internal/inverter"
	"score-inverter/internal/logger"
	"score-inverter/internal/service"
)

const usage = `invert - Phigros score inverter

Usage:
  invert <command> [flags]

Commands:
  solve   -amount A -score S [-all] [-seed N]
          list the (MaxCombo, Perfect, Good) records that reach S
  score   -amount A -combo C -perfect P -good G
          compute the score of a record
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	in := &prompter{scanner: bufio.NewScanner(stdin), out: stdout}
	var err error

	switch args[0] {
	case "solve":
		err = cmdSolve(ctx, args[1:], in, stdout, stderr)
	case "score":
		err = cmdScore(args[1:], in, stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		fmt.Fprint(stderr, usage)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// prompter asks for values that were not passed as flags
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *prompter) ask(label string) (int64, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s: no input", label)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(p.scanner.Text()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer", label)
	}
	return n, nil
}

// intFlag is an int64 flag that remembers whether it was set
type intFlag struct {
	label string
	value int64
	set   bool
}

func (f *intFlag) String() string { return strconv.FormatInt(f.value, 10) }

func (f *intFlag) Set(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("not an integer")
	}
	f.value, f.set = n, true
	return nil
}

// resolve fills every unset flag from the prompter, in order
func resolve(in *prompter, flags ...*intFlag) error {
	for _, f := range flags {
		if f.set {
			continue
		}
		n, err := in.ask(f.label)
		if err != nil {
			return err
		}
		f.value, f.set = n, true
	}
	return nil
}

func cmdSolve(ctx context.Context, args []string, in *prompter, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	amount := &intFlag{label: "Note count"}
	target := &intFlag{label: "Target score"}
	fs.Var(amount, "amount", "number of notes on the chart")
	fs.Var(target, "score", "observed score")
	all := fs.Bool("all", false, "print every solution")
	seed := fs.Int64("seed", 0, "seed for the random pick (0 uses the clock)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := resolve(in, amount, target); err != nil {
		return err
	}

	cfg := config.Load()
	log := logger.New(50)
	log.SetLevel(logger.LevelWarn)
	svc := service.New(nil, log, service.Options{
		Solver: inverter.Config{
			Workers:       cfg.Solver.Workers,
			MaxIterations: cfg.Solver.MaxIterations,
		},
	})
	defer svc.Close()

	start := time.Now()
	ans, err := svc.Solve(ctx, amount.value, target.value)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Elapsed: %s\n", time.Since(start).Round(time.Microsecond))

	if ans.Count == 0 {
		fmt.Fprintln(stdout, "No solution")
		return nil
	}
	fmt.Fprintf(stdout, "Solutions: %d\n", ans.Count)

	if *all {
		sols := slices.Clone(ans.Solutions)
		slices.SortFunc(sols, func(a, b inverter.Solution) int {
			return cmp.Or(cmp.Compare(b.Combo, a.Combo), cmp.Compare(b.Perfect, a.Perfect))
		})
		for _, s := range sols {
			fmt.Fprintln(stdout, s)
		}
		return nil
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	pick, _ := service.Pick(rand.New(rand.NewSource(*seed)), ans.Solutions)
	fmt.Fprintf(stdout, "Random solution (MaxCombo, Perfect, Good): %s\n", pick)
	return nil
}

func cmdScore(args []string, in *prompter, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(stderr)
	amount := &intFlag{label: "Note count"}
	combo := &intFlag{label: "Max combo"}
	perfect := &intFlag{label: "Perfect count"}
	good := &intFlag{label: "Good count"}
	fs.Var(amount, "amount", "number of notes on the chart")
	fs.Var(combo, "combo", "max combo")
	fs.Var(perfect, "perfect", "number of Perfect judgements")
	fs.Var(good, "good", "number of Good judgements")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := resolve(in, amount, combo, perfect, good); err != nil {
		return err
	}

	rep, err := service.ScoreOf(combo.value, perfect.value, good.value, amount.value)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "900000 * (%d + 0.65 * %d) / %d + 100000 * %d / %d = %d (rounded)\n",
		rep.Perfect, rep.Good, rep.Amount, rep.Combo, rep.Amount, rep.Score)
	if !rep.Valid {
		fmt.Fprintf(stdout, "warning: this record cannot occur (%s)\n", rep.Reason)
	}
	return nil
}
