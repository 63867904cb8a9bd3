// Command formcheck checks form values against declarative validation rules.
// Rules come from a JSON/YAML rules file or from the request schema of an
// OpenAPI operation; values come from a JSON/YAML file, an interactive prompt,
// or a watched file that is re-checked on every save.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/goliatone/go-formcheck/pkg/prompt"
)

const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], environ(os.Environ()), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, environment map[string]string, stdout, stderr io.Writer) int {
	return runWith(ctx, args, environment, stdout, stderr, prompt.NewSurveyDriver)
}

func runWith(ctx context.Context, args []string, environment map[string]string, stdout, stderr io.Writer, driver func() prompt.PromptDriver) int {
	cfg, err := loadConfig(args, environment, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitValid
		}
		fmt.Fprintln(stderr, err)
		return exitError
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	a, err := newApp(ctx, cfg, logger, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	defer a.checker.Close()

	var valid bool
	switch cfg.mode() {
	case modeWatch:
		valid, err = a.runWatch(ctx)
	case modeInteractive:
		valid, err = a.runInteractive(ctx, driver())
	default:
		valid, err = a.runOnce()
	}
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "formcheck: aborted")
		} else {
			fmt.Fprintln(stderr, err)
		}
		return exitError
	}
	if !valid {
		return exitInvalid
	}
	return exitValid
}

func environ(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}
