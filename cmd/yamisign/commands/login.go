package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/forum"
	"yamisign/lib/serviceutil"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginUsername *string
var loginQuestionID *int
var loginAnswer *string
var loginAuth *string
var loginSaltkey *string

func init() {
	loginUsername = loginPasswordCmd.Flags().String("username", "", "The forum username.")
	loginQuestionID = loginPasswordCmd.Flags().Int("question-id", 0, "The security question id (1-7), 0 if none is set.")
	loginAnswer = loginPasswordCmd.Flags().String("answer", "", "The answer to the security question.")
	loginPasswordCmd.MarkFlagRequired("username")

	loginAuth = loginCookieCmd.Flags().String("auth", "", "The value of the auth cookie.")
	loginSaltkey = loginCookieCmd.Flags().String("saltkey", "", "The value of the saltkey cookie.")

	loginCmd.AddCommand(loginPasswordCmd)
	loginCmd.AddCommand(loginCookieCmd)
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Stores a forum session for an account.",
}

// readSecret prompts without echo on a terminal and reads a single line
// from stdin otherwise.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(secret), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// finishLogin prints the outcome. Failed logins are stored too so the
// account shows up as needing a new login.
func finishLogin(ctx context.Context, a app, message string, acc accounts.Account) {
	if !acc.Valid {
		err := a.store.Upsert(ctx, acc)
		if err != nil {
			slog.Warn("failed to store failed login", "err", err)
		}
		fmt.Println(message)
		a.close()
		os.Exit(1)
	}

	fmt.Println(message)
	t := newTable()
	t.AppendHeader(tableRow("Cookie", "Value"))
	for _, name := range acc.Cookies.Names() {
		value, _ := acc.Cookies.Get(name)
		t.AppendRow(tableRow(name, value))
	}
	t.AppendFooter(tableRow("Logged in", time.Unix(acc.LastAuthenticatedAt, 0).Format(time.DateTime)))
	t.Render()
}

var loginPasswordCmd = &cobra.Command{
	Use:   "password <external-id> --username <name> [--question-id <id> --answer <answer>]",
	Short: "Logs in with a username and password, the password is read from stdin.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()

		password, err := readSecret("Password: ")
		if err != nil {
			serviceutil.Fatal("read password", err)
		}

		message, acc := a.authenticator().LoginPassword(ctx, args[0], forum.PasswordCredentials{
			Username:   *loginUsername,
			Password:   password,
			QuestionID: *loginQuestionID,
			Answer:     *loginAnswer,
		})
		finishLogin(ctx, a, message, acc)
	},
}

var loginCookieCmd = &cobra.Command{
	Use:   "cookie <external-id> --auth <value> --saltkey <value>",
	Short: "Stores a session copied from a browser after checking it with the forum.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()

		message, acc := a.authenticator().LoginCookie(ctx, args[0], forum.CookieCredentials{
			Auth:    *loginAuth,
			Saltkey: *loginSaltkey,
		})
		finishLogin(ctx, a, message, acc)
	},
}
