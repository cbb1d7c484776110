// Package e2e holds end-to-end tests that run the chat stack against a fake
// llama-server: model loading, generation, the assistant and both HTTP
// surfaces.
package e2e
