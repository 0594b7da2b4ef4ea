// Package llm provides a provider-neutral abstraction over chat completion APIs.
//
// Callers build a Request out of Messages plus an optional System prompt and
// hand it to a Client. Provider packages (openai, anthropic, ollama) translate
// the request to their SDK and map SDK failures onto *Error so callers can
// branch on ErrorType without importing provider code.
//
// Setting Request.JSONMode asks the provider to return a single JSON object.
// Providers without a native switch fall back to an instruction appended to
// the system prompt.
//
// ProviderRegistry picks which provider to use from an ordered preference list.
package llm
