// Package openai implements [toolchat.Model] for OpenAI-compatible chat
// completion APIs, including local servers that speak the same protocol.
package openai

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 8192
)
