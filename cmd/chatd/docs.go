package main

// General API documentation for swaggo. Regenerate docs/ with:
//
//	swag init -g cmd/chatd/docs.go -d ./,./internal/httpapi,./pkg/types -o docs
//
// @title           chatd API
// @version         1.0
// @description     Chat API over a locally served instruction-tuned LLM.
//
// @contact.name   chatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
