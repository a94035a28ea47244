// Package redact removes secrets from Python source before it is sent to an
// AI provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private key blocks, AWS access key IDs and secret access keys, bearer
// tokens, credentials in connection URLs, and provider-specific tokens
// (Anthropic, OpenAI, Google, GitHub, Slack). For assignments the target name
// is kept and only the value is replaced.
//
// Path-based redaction is also supported: files whose names match configured
// glob patterns are withheld entirely rather than scanned line by line.
package redact
