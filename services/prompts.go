package services

import "strings"

// rewriteSystemPrompt instructs the model to turn a follow-up question
// into a standalone one without answering it.
const rewriteSystemPrompt = `You are an AI assistant that rephrases user follow-up questions into complete, standalone questions.

Your goal is to make the question fully self-contained by including all necessary context from the previous conversation, so it can be used for accurate semantic search.

If the user input is not a follow-up question, leave it the same.

Do not answer the question. Simply return the standalone version of the last user message.`

// groundingSystemPrompt binds answers to the retrieved context, with an
// explicit fallback when the answer is absent and a lenient policy for
// conversational non-questions.
const groundingSystemPrompt = `You are a helpful assistant. For questions, answer strictly based on the provided context. ` +
	`If the user is asking a question and the answer is not in the context, respond with '` + DontKnowReply + `' ` +
	`For non-question messages such as greetings, openers, or polite endings (e.g., 'Hi', 'Thank you', 'Bye'), ` +
	`respond in a brief, friendly, and polite manner without requiring context (e.g., 'Hello, how can I help you?', 'You are welcome').`

// DontKnowReply is the configured fallback when the answer is not in the
// retrieved context.
const DontKnowReply = "I don't know based on the provided information."

// groundedUserPrompt assembles the single user turn sent to the
// generator: retrieved chunks first, then the standalone question.
func groundedUserPrompt(question string, contextChunks []string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(strings.TrimSpace(strings.Join(contextChunks, "\n\n")))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))
	return sb.String()
}
