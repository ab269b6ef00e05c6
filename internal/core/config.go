package core

type AppConfig interface {
	GetRuntimePath() string
	GetDatabasePath() string
	GetContextWindowSize() int
	GetRecallLimit() int
	GetHistoryTokenBudget() int
}

type PromptConfig interface {
	GetSystemPath() string
	GetIdentityPath() string
	GetUserProfilePath() string
}
