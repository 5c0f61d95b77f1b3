package models

type AskRequest struct {
	Question    string             `json:"question"`
	ChatHistory []ConversationTurn `json:"chat_history"`
}
