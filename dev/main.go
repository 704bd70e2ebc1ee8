package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

func create(recreate, forum bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	err = os.MkdirAll("dev/.state", 0777)
	if err != nil && !os.IsExist(err) {
		return err
	}

	err = CreateAccountsDB()
	if err != nil {
		return err
	}
	if forum {
		err = SetupForumTests()
		if err != nil {
			return err
		}
	}
	PrintConfigLocations()

	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	forum := flag.Bool("forum", false, "prompt for the credentials used by the live forum tests")
	flag.Parse()

	err := create(*recreate, *forum)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
