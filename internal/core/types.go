package core

const (
	StrideName          = "StrideMem"
	StrideRepositoryURL = "https://github.com/sandevgo/stridemem"
	StrideVersion       = "0.1.0"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
