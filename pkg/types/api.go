package types

// Turn is one prior message of a conversation as sent by API clients.
type Turn struct {
	// Speaker of the message: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Сайн байна уу?
	Content string `json:"content" example:"Сайн байна уу?"`
}

// ChatRequest is the body accepted by POST /chat.
type ChatRequest struct {
	// New user message. Required.
	// example: Монгол улсын нийслэл хаана вэ?
	Message string `json:"message" example:"Монгол улсын нийслэл хаана вэ?"`
	// Prior turns, oldest first. Only the most recent turns are forwarded to the model.
	History []Turn `json:"history"`
}

// ChatResponse is returned by POST /chat for both success and failure.
type ChatResponse struct {
	// Assistant reply, or a localized error message when Status is "error".
	// example: Улаанбаатар хот.
	Response string `json:"response" example:"Улаанбаатар хот."`
	// Either "success" or "error".
	// example: success
	Status string `json:"status" example:"success"`
}

// Chat response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Active model identifier.
	// example: Qwen/Qwen2.5-1.5B-Instruct
	Model string `json:"model" example:"Qwen/Qwen2.5-1.5B-Instruct"`
}

// UsageExample shows one request against the chat endpoint.
type UsageExample struct {
	URL    string      `json:"url" example:"/chat"`
	Method string      `json:"method" example:"POST"`
	Body   ChatRequest `json:"body"`
}

// Usage wraps the example request for GET /.
type Usage struct {
	Example UsageExample `json:"example"`
}

// InfoResponse is returned by GET /.
type InfoResponse struct {
	// example: online
	Status string `json:"status" example:"online"`
	// Human-readable banner.
	Message string `json:"message"`
	// Route directory: path -> description.
	Endpoints map[string]string `json:"endpoints"`
	// Active model identifier.
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// RespondRequest is the body the local chat widget posts to /api/respond.
// History holds (user, assistant) pairs, oldest first.
type RespondRequest struct {
	Message string      `json:"message"`
	History [][2]string `json:"history"`
}

// RespondResponse carries the assistant reply back to the local widget.
type RespondResponse struct {
	Response string `json:"response"`
}
