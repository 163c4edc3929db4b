// Package generation produces answer text from chat messages using the
// configured LLM provider. OpenAI and Google AI adapters sit behind a common
// Provider interface; both are driven through langchaingo.
package generation
