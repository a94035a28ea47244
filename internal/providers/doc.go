// Package providers implements the Reviewer interface for each supported LLM
// provider.
//
// Supported providers: OpenAI, Anthropic, Google Gemini, and Ollama /
// LM Studio for local models. The HTTP providers share a resty client that
// makes a single attempt per call and logs through hclog; Gemini goes through
// the genai SDK. Failures are classified as authentication, rate-limit or
// server errors so callers can choose an exit code.
//
// Use [New] to obtain a Reviewer by provider name and model string.
package providers
