// Command wave runs checkers and interactors built on wave-testlib.
//
//	wave check guest.wasm input output answer
//	wave interact guest.wasm input answer < candidate-pipe > candidate-pipe
//	wave compare input output answer
//	wave inspect output.txt
//
// Exit codes follow the verdict convention: 0 accepted, 255 rejected, 2 for
// any infrastructure failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/wippyai/wave-testlib/verdict"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCmd(newApp()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(verdict.ExitFault)
	}
}
