package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/tater980/openai-nim-proxy/internal/tokensource"
)

// authCommand returns the 'auth' subcommand for managing the upstream credential.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the NIM API credential",
		Commands: []*cli.Command{
			authLoginCommand(),
			authLogoutCommand(),
		},
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Save the NIM API key to the OS keyring",
		Action: authLoginAction,
	}
}

// authLogoutCommand returns the 'auth logout' subcommand.
func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Remove the NIM API key from the OS keyring",
		Action: authLogoutAction,
	}
}

// authLoginAction prompts for the API key and stores it in the keyring.
// A key set in config or environment takes precedence over the keyring at
// runtime, so login only matters for deployments without one.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	key, err := readSecureInput(ctx, "Enter NIM API key: ")
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := tokensource.Store(key); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Login Successful ===")
	fmt.Println("API key saved to the OS keyring")
	fmt.Println("The proxy will use it for upstream authentication")

	return nil
}

// authLogoutAction clears the stored API key.
func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	if err := tokensource.Clear(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Logout Successful ===")
	fmt.Println("API key cleared from the OS keyring")

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
