package commands

import (
	"context"
	"fmt"
	"os"
	"yamisign/lib/serviceutil"
	"yamisign/services/autosign"

	"github.com/spf13/cobra"
)

var signByUsername *bool

func init() {
	signByUsername = signCmd.Flags().Bool("by-username", false, "Treat the argument as a forum username instead of an external id.")
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(autosignCmd)
	rootCmd.AddCommand(runOnceCmd)
	rootCmd.AddCommand(digestCmd)
}

func resolveExternalID(ctx context.Context, service autosign.Service, arg string) string {
	if !*signByUsername {
		return arg
	}
	acc, err := service.FindByUsername(ctx, arg)
	if err != nil {
		serviceutil.Fatal("find account", err)
	}
	return acc.ExternalID
}

var signCmd = &cobra.Command{
	Use:   "sign <external-id> [--by-username]",
	Short: "Signs a single account in right now.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()
		service, err := a.service()
		if err != nil {
			serviceutil.Fatal("init autosign", err)
		}

		outcome, err := service.SignOne(ctx, resolveExternalID(ctx, service, args[0]))
		if err != nil {
			serviceutil.Fatal("sign", err)
		}
		if !outcome.Succeeded {
			fmt.Println("Sign Failed:", outcome.Detail)
			os.Exit(1)
		}
		fmt.Println("Sign Successful:", outcome.Detail)
	},
}

var autosignCmd = &cobra.Command{
	Use:   "autosign <external-id>",
	Short: "Toggles the daily autosign of an account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()
		service, err := a.service()
		if err != nil {
			serviceutil.Fatal("init autosign", err)
		}

		enabled, err := service.ToggleAutoSign(ctx, args[0])
		if err != nil {
			serviceutil.Fatal("toggle autosign", err)
		}
		fmt.Printf("autosign for %s is now %v\n", args[0], enabled)
	},
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Runs the daily sign job immediately.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()
		service, err := a.service()
		if err != nil {
			serviceutil.Fatal("init autosign", err)
		}

		report := service.RunNow(ctx)
		fmt.Println(report.Footer())
		fmt.Println(report.DetailsText())
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Sends the list of enrolled accounts that need to log in again.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()
		service, err := a.service()
		if err != nil {
			serviceutil.Fatal("init autosign", err)
		}

		err = service.Digest(ctx)
		if err != nil {
			serviceutil.Fatal("digest", err)
		}
	},
}
