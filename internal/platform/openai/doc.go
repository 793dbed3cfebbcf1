// Package openai implements generation.TextGenerator on top of the OpenAI
// chat completions API (or any compatible endpoint configured by base URL).
package openai
