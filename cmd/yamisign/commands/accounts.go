package commands

import (
	"strings"
	"time"
	"yamisign/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Lists the stored accounts.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()

		list, err := a.store.GetAll(ctx)
		if err != nil {
			serviceutil.Fatal("list accounts", err)
		}

		t := newTable()
		t.AppendHeader(tableRow("External ID", "Username", "Valid", "Autosign", "Last login", "Cookies"))
		for _, acc := range list {
			lastLogin := "never"
			if acc.LastAuthenticatedAt > 0 {
				lastLogin = time.Unix(acc.LastAuthenticatedAt, 0).In(a.clock.Location()).Format(time.DateTime)
			}
			t.AppendRow(tableRow(
				acc.ExternalID,
				acc.Username,
				acc.Valid,
				acc.AutoSign,
				lastLogin,
				strings.Join(acc.Cookies.Names(), ", "),
			))
		}
		t.AppendFooter(tableRow("", "", "", "", "Total", len(list)))
		t.Render()
	},
}
