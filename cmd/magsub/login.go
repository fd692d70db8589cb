package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ena-tools/magsub/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Capture archive credentials interactively",
	Long: `Prompt for archive credentials and install them as the in-process
override, ahead of the ` + auth.UserEnv + ` and ` + auth.PasswordEnv + `
environment variables. The override lives for this process only; export
the environment variables to persist credentials across runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	var username string
	if len(args) == 1 {
		username = args[0]
	} else {
		fmt.Print("Archive username: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("a username is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	if len(password) == 0 {
		return fmt.Errorf("an empty password is not accepted")
	}

	auth.SetOverride(username, string(password))
	fmt.Printf("Credentials for %s installed for this process.\n", username)
	fmt.Printf("To persist them, export %s and %s in your shell.\n", auth.UserEnv, auth.PasswordEnv)
	return nil
}
