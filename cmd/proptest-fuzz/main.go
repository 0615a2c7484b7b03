// Command proptest-fuzz is the engine's demonstration CLI: it runs one of
// a handful of built-in example properties under internal/proptest, the
// way cmd/orizon-fuzz let a caller pick among a handful of built-in fuzz
// targets (noop/parser/lexer/...) via -target. Embedders are expected to
// write their own small main package calling proptest.Run1..Run7 directly;
// this binary exists to exercise -watch, -fork, -replay-seed and --version
// end to end without requiring a project of your own.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orizon-lang/proptest/internal/fork"
	"github.com/orizon-lang/proptest/internal/proptest"
	"github.com/orizon-lang/proptest/internal/runner"
	"github.com/orizon-lang/proptest/typeinfo"
)

const (
	forkKeyReverse     = "cli-reverse"
	forkKeySort        = "cli-sort"
	forkKeyCommutative = "cli-commutative"
)

func forkKeyFor(targetKind string) string {
	switch strings.ToLower(targetKind) {
	case "sort":
		return forkKeySort
	case "commutative":
		return forkKeyCommutative
	default:
		return forkKeyReverse
	}
}

func main() {
	// Every fork-eligible target is registered under a stable key before
	// anything else runs, so that if this process is a re-exec'd fork
	// child, MaybeRunChild below can find it. See internal/fork's package
	// doc for why this has to happen first, in the parent and the child
	// alike.
	_ = proptest.RegisterFork1(forkKeyReverse, typeinfo.String(64), propReverseTwiceIsIdentity)
	_ = proptest.RegisterFork1(forkKeySort, typeinfo.Slice(typeinfo.IntRange(-1000, 1000), 64), propSortIdempotent)
	_ = proptest.RegisterFork2(forkKeyCommutative, typeinfo.IntRange(-1_000_000, 1_000_000), typeinfo.IntRange(-1_000_000, 1_000_000), propAddCommutes)

	if fork.MaybeRunChild(nil) {
		return
	}

	var (
		trials      int
		seed        uint64
		lang        string
		targetKind  string
		forkEnable  bool
		forkTimeout time.Duration
		watchPath   string
		showVersion bool
		replaySeeds string
		replayPar   int
	)

	flag.IntVar(&trials, "trials", proptest.DefaultTrials, "number of trials per run")
	flag.Uint64Var(&seed, "seed", 0, "run seed (0=engine default)")
	flag.StringVar(&lang, "lang", "en", "message language (ja|en)")
	flag.StringVar(&targetKind, "target", "reverse", "built-in property (reverse|sort|commutative)")
	flag.BoolVar(&forkEnable, "fork", false, "isolate each trial in a forked subprocess")
	flag.DurationVar(&forkTimeout, "fork-timeout", 2*time.Second, "per-trial fork timeout (0=none)")
	flag.StringVar(&watchPath, "watch", "", "re-run the suite whenever this path changes")
	flag.BoolVar(&showVersion, "version", false, "print the engine's protocol version and exit")
	flag.StringVar(&replaySeeds, "replay-seed", "", "comma-separated seeds to replay instead of a fresh run")
	flag.IntVar(&replayPar, "replay-parallel", 4, "max concurrent replays for -replay-seed")
	flag.Parse()

	L := getLocale(lang)

	if showVersion {
		fmt.Println(proptest.Version().String())
		return
	}

	cfg := proptest.RunConfig{
		Trials: trials,
		Seed:   seed,
		Fork: proptest.ForkPolicy{
			Enable:  forkEnable,
			Key:     forkKeyFor(targetKind),
			Timeout: forkTimeout,
		},
		Hooks: proptest.LoggingHooks(os.Stdout),
	}

	run := func() proptest.Report { return runTarget(targetKind, cfg) }

	if replaySeeds != "" {
		seeds := parseSeedList(replaySeeds)
		ctx := context.Background()
		results := runner.ReplayAll(ctx, int64(replayPar), seeds, func(_ context.Context, s uint64) bool {
			r := runTarget(targetKind, proptest.RunConfig{Trials: 1, AlwaysSeeds: []uint64{s}})
			return r.Result == proptest.RunPass
		})
		for i, s := range seeds {
			fmt.Printf("seed %#x: %s\n", s, passFail(results[i]))
		}
		return
	}

	if watchPath != "" {
		watchAndRun(L, watchPath, run)
		return
	}

	report := run()
	printReport(L, report)
	if report.Result != proptest.RunPass {
		os.Exit(1)
	}
}

// runTarget dispatches to one of the built-in example properties. Each one
// is registered with internal/fork under the "cli-<name>" key so -fork can
// isolate it; Register is idempotent across repeated calls within the same
// process (last write wins), which is fine here since there is exactly one
// target per invocation.
func runTarget(kind string, cfg proptest.RunConfig) proptest.Report {
	switch strings.ToLower(kind) {
	case "sort":
		return proptest.Run1(cfg, typeinfo.Slice(typeinfo.IntRange(-1000, 1000), 64), propSortIdempotent)
	case "commutative":
		return proptest.Run2(cfg, typeinfo.IntRange(-1_000_000, 1_000_000), typeinfo.IntRange(-1_000_000, 1_000_000), propAddCommutes)
	default:
		return proptest.Run1(cfg, typeinfo.String(64), propReverseTwiceIsIdentity)
	}
}

func propReverseTwiceIsIdentity(s string) bool {
	return reverseString(reverseString(s)) == s
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func propSortIdempotent(xs []int) bool {
	once := sortedCopy(xs)
	twice := sortedCopy(once)
	if len(once) != len(twice) {
		return false
	}
	for i := range once {
		if once[i] != twice[i] {
			return false
		}
	}
	return true
}

func sortedCopy(xs []int) []int {
	out := append([]int(nil), xs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func propAddCommutes(a, b int) bool {
	return a+b == b+a
}

func watchAndRun(L locale, path string, run func() proptest.Report) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatal(L, "failed to start watcher: ", err)
	}
	defer watcher.Close()

	dir := path
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := watcher.Add(dir); err != nil {
		fatal(L, "failed to watch path: ", err)
	}

	fmt.Println(L.watching(path))
	printReport(L, run())

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Println(L.rerun())
			printReport(L, run())
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func printReport(L locale, r proptest.Report) {
	fmt.Printf("%s trials=%d passed=%d failed=%d skipped=%d dups=%d\n",
		r.Result.String(), r.Trials, r.Passed, r.Failed, r.Skipped, r.Dups)
	if r.Result == proptest.RunFail {
		fmt.Printf("failing seed: %#x\n", r.FailingSeed)
		for i, a := range r.FailingArgs {
			fmt.Printf("  arg[%d] = %s\n", i, a)
		}
	}
	println(L.done())
}

func parseSeedList(s string) []uint64 {
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(p, "0x"), hexOrDecBase(p), 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func hexOrDecBase(s string) int {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return 16
	}
	return 10
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

type locale struct {
	done     func() string
	watching func(path string) string
	rerun    func() string
}

func getLocale(lang string) locale {
	switch strings.ToLower(lang) {
	case "ja", "jp", "japanese":
		return locale{
			done:     func() string { return "実行終了" },
			watching: func(path string) string { return fmt.Sprintf("%s を監視中...", path) },
			rerun:    func() string { return "変更を検知、再実行します" },
		}
	default:
		return locale{
			done:     func() string { return "Run finished" },
			watching: func(path string) string { return fmt.Sprintf("watching %s...", path) },
			rerun:    func() string { return "change detected, re-running" },
		}
	}
}

func fatal(L locale, a ...any) {
	fmt.Fprintln(os.Stderr, a...)
	os.Exit(1)
}
