// Package llm provides a client for OpenAI-compatible chat completion
// endpoints with bounded retry and tolerant JSON decoding of model output.
package llm
