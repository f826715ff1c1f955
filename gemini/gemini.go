// Package gemini implements [toolchat.Model] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between toolchat's
// domain types and the Gemini API types.
package gemini

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 8192
)
