// Package prompt assembles chat messages for grounded and fallback answers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/ragd/internal/generation"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

// DefaultHistoryLimit is the number of most recent history turns included in
// a prompt.
const DefaultHistoryLimit = 5

const systemTemplate = `You are an intelligent AI assistant for a messaging chatbot. Your role is to provide helpful, accurate, and friendly responses based on the provided context.

Guidelines:
- Answer questions accurately using the context provided
- Be concise and clear, responses are delivered as chat messages
- Use a friendly, conversational tone
- If the context doesn't contain the answer, politely say you don't have that information
- Never make up information that's not in the context
- Format responses for readability
- If relevant, provide actionable next steps

Context Information:
%s

Conversation History:
%s

Now, answer the user's question based on the context above.`

const fallbackTemplate = `You are a helpful AI assistant for a messaging chatbot. The knowledge base doesn't contain specific information to answer this question, but you should provide a helpful response.

Guidelines:
- Acknowledge that you don't have specific information about their question
- Provide general helpful information if possible
- Suggest alternative ways they can get help
- Be friendly and apologetic
- Keep it brief and conversational

Conversation History:
%s

User Question: %s

Provide a helpful, friendly response.`

// FormatHistory renders the most recent maxTurns history messages as
// "User:"/"Assistant:" lines. maxTurns <= 0 uses DefaultHistoryLimit.
func FormatHistory(history []generation.Message, maxTurns int) string {
	if len(history) == 0 {
		return "No previous conversation."
	}
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryLimit
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	lines := make([]string, 0, len(history))
	for _, m := range history {
		role := "Assistant"
		if m.Role == generation.RoleUser {
			role = "User"
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// FormatContext renders retrieved passages as labeled sources with title and
// relevance score.
func FormatContext(passages []retriever.Passage) string {
	if len(passages) == 0 {
		return "No relevant information found in the knowledge base."
	}

	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		parts = append(parts, fmt.Sprintf("--- Source %d: %s (Relevance: %.2f) ---\n%s",
			i+1, p.Title, p.Score, p.Content))
	}
	return strings.Join(parts, "\n\n")
}

// BuildMessages assembles the grounded prompt: a system message embedding the
// retrieved context and recent history, followed by the user query.
func BuildMessages(query string, passages []retriever.Passage, history []generation.Message) []generation.Message {
	system := fmt.Sprintf(systemTemplate,
		FormatContext(passages),
		FormatHistory(history, DefaultHistoryLimit))

	return []generation.Message{
		{Role: generation.RoleSystem, Content: system},
		{Role: generation.RoleUser, Content: query},
	}
}

// BuildFallbackMessages assembles the prompt used when retrieval found
// nothing: it acknowledges missing context instead of fabricating an answer.
func BuildFallbackMessages(query string, history []generation.Message) []generation.Message {
	system := fmt.Sprintf(fallbackTemplate,
		FormatHistory(history, DefaultHistoryLimit),
		query)

	return []generation.Message{
		{Role: generation.RoleSystem, Content: system},
		{Role: generation.RoleUser, Content: query},
	}
}
