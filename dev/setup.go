package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	devenv "yamisign/dev/env"
	"yamisign/lib/accounts"
	"yamisign/lib/forum"
	"yamisign/pkg/migrations"

	"golang.org/x/term"
)

func CreateAccountsDB() error {
	path, err := devenv.ResolvePath("<dev_state>/yamisign.db")
	if err != nil {
		return err
	}
	fmt.Println("migrating database at", path)

	db, err := migrations.OpenAndMigrateDB(migrations.Config{File: path}, accounts.Schema)
	if err != nil {
		return err
	}
	return db.Close()
}

func ask(reader *bufio.Reader, prompt, fallback string) (string, error) {
	if fallback != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, fallback)
	}
	fmt.Print(prompt + ": ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}
	return line, nil
}

func askSecret(prompt string) (string, error) {
	fmt.Print(prompt + ": ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return string(secret), err
}

func SetupForumTests() error {
	path, err := devenv.GetStateFilePath("forum_test.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		slog.Info("forum credentials have already been provided", "path", path)
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	config := devenv.ForumTestConfig{}

	config.BaseUrl, err = ask(reader, "forum base url", forum.DefaultBaseUrl)
	if err != nil {
		return err
	}
	config.Username, err = ask(reader, "forum username", "")
	if err != nil {
		return err
	}
	config.Password, err = askSecret("forum password")
	if err != nil {
		return err
	}
	question, err := ask(reader, "security question id", "0")
	if err != nil {
		return err
	}
	config.QuestionID, err = strconv.Atoi(question)
	if err != nil {
		return fmt.Errorf("security question id: %w", err)
	}
	if config.QuestionID != 0 {
		config.Answer, err = askSecret("security answer")
		if err != nil {
			return err
		}
	}

	cached, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, cached, 0600)
}

func PrintConfigLocations() {
	slog.Info("the live forum tests read dev/.state/forum_test.json5 and are skipped without it, run with -forum to create it.")
}
