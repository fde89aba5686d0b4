package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd(os.Stdout)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("wordindex failed", "error", err, "kind", apperrors.KindOf(err).String())
		os.Exit(apperrors.ExitCode(err))
	}
}
