package devenv

// ForumTestConfig is read from dev/.state/forum_test.json5 by the live
// forum tests, which are skipped when the file is absent.
type ForumTestConfig struct {
	BaseUrl    string `json:"base_url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}
