// Package server provides the HTTP transport for the copilot engine.
//
// The server is a chi router with middleware for request IDs, access
// logging, panic recovery and CORS. Every API route requires a caller
// identity, read from a trusted header by an Authenticator; identity is
// issued elsewhere.
//
// # API Endpoints
//
//   - POST /api/copilot/sessions: create a session, returns {"id"}
//   - POST /api/copilot/sessions/{sessionID}/messages: append a user message, returns {"id"}
//   - GET  /api/copilot/chat/{sessionID}?messageId=: text completion as text/plain
//   - GET  /api/copilot/chat/{sessionID}/stream?messageId=: streamed completion as SSE
//   - GET  /api/copilot/chat/{sessionID}/images?messageId=: generated attachments as SSE
//   - POST /api/copilot/chat/{sessionID}/abort: cancel running generations
//   - GET  /api/copilot/histories?workspaceId=: the caller's sessions with their messages
//   - GET  /api/copilot/prompts, /api/copilot/providers: registry listings
//   - /api/workspaces/*: development workspace directory
//   - GET  /event: the caller's bus events as SSE
//
// # Chat Streams
//
// Chat streams use one frame per chunk or attachment reference, keyed by the
// triggering message ID:
//
//	event: message
//	id: 01J9Z...
//	data: generate
//
// Attachment frames use the event name "attachment". A failure after the
// stream started is sent as an "error" frame and ends the stream. A client
// that disconnects mid-stream cancels the generation and nothing is
// persisted for it.
//
// # Errors
//
// Errors are JSON objects of the form {"error":{"code","message","details"}}.
// Permission denials map to 403 PERMISSION_DENIED, ownership violations to
// 403 FORBIDDEN, unknown sessions and messages to 404 NOT_FOUND, unknown
// prompts to 400 PROMPT_NOT_FOUND and provider failures to 502
// GENERATION_FAILED.
package server
