// Command session-keeper logs into the session service and keeps the cookie
// session alive by refreshing before the access token expires.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/facturador/facturador/backend/go-services/internal/refresher"
	"github.com/facturador/facturador/backend/go-services/pkg/logger"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	baseURL := flag.String("url", "http://localhost:5001", "session service base URL")
	email := flag.String("email", os.Getenv("SESSION_KEEPER_EMAIL"), "account email")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))

	if *email == "" {
		logger.Fatalf("an account email is required (-email or SESSION_KEEPER_EMAIL)")
	}
	password, err := passwordFromEnvOrTerminal()
	if err != nil {
		logger.Fatalf("read password: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := refresher.NewHTTPSession(*baseURL, nil)
	if err != nil {
		logger.Fatalf("http session: %v", err)
	}
	if err := client.Login(ctx, *email, password); err != nil {
		logger.Fatalf("login failed: %v", err)
	}
	logger.Infof("logged in as %s", *email)

	expired := make(chan struct{})
	sched := refresher.New(client, func() { close(expired) })
	if err := sched.Start(ctx); err != nil {
		logger.Fatalf("session could not be established: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-expired:
		if ctx.Err() == nil {
			logger.Errorf("session expired; log in again")
			os.Exit(1)
		}
	}

	sched.Stop()
	if err := client.Logout(context.WithoutCancel(ctx)); err != nil {
		logger.Warnf("logout: %v", err)
	}
	logger.Infof("stopped")
}

func passwordFromEnvOrTerminal() (string, error) {
	if p := os.Getenv("SESSION_KEEPER_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
