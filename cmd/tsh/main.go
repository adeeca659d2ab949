// Command tsh is a tiny interactive shell with job control.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGQUIT)

	// SIGQUIT ends the shell straight away, even while a foreground job runs.
	go func() {
		<-quit
		fmt.Fprintln(os.Stdout, "Terminating after receipt of SIGQUIT signal")
		os.Exit(1)
	}()

	std := stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr}

	if err := rootCmd(std).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}
