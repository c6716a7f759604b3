package domain

import "strings"

// Role identifica al autor de un mensaje.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrorPrefix antecede el único mensaje de error visible para el usuario.
const ErrorPrefix = "Error: "

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ErrorMessage construye el mensaje sintético de asistente que reporta un fallo.
func ErrorMessage(err error) Message {
	desc := "unknown error"
	if err != nil {
		desc = err.Error()
	}
	return AssistantMessage(ErrorPrefix + desc)
}

// IsError indica si el mensaje es un error sintético.
func (m Message) IsError() bool {
	return m.Role == RoleAssistant && strings.HasPrefix(m.Content, ErrorPrefix)
}
