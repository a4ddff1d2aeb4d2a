package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           inferd API
// @version         1.0
// @description     OpenAI-compatible chat-completions API for a locally running multimodal model.
//
// @contact.name   inferd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
