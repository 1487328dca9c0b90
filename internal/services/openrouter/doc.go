// Package openrouter provides a thin client for the OpenRouter chat
// completion API. It returns the model's reply as raw text and leaves both
// parsing and retry policy to callers.
package openrouter
