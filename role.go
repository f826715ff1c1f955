package toolchat

// Role represents the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
	// RoleError marks display-only error messages. They are never sent to
	// the model.
	RoleError Role = "error"
)
