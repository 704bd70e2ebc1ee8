package main

import (
	"yamisign/cmd/yamisign/commands"
	"yamisign/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
