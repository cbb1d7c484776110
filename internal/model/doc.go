// Package model loads the tokenizer and language model used for chat.
//
// The model runs inside a llama.cpp server process. Load either attaches to a
// server that is already running (Spec.BaseURL) or spawns one bound to
// loopback, pointing it at a local GGUF file or a Hugging Face repository.
// The server's /tokenize, /detokenize and /completion endpoints back the
// Tokenizer and LM interfaces, which work on token ids so callers can slice
// the prompt off a generated sequence.
//
// Files:
//
//   - model.go: Spec, Model, Tokenizer/LM interfaces and Load.
//   - source.go: resolving an identifier to a local file or hub reference.
//   - memory.go: host memory preflight.
//   - server.go: HTTP client for a running llama-server.
//   - spawn.go: starting and stopping a managed llama-server.
//   - errors.go: error types and Is* helpers.
package model
