// Package server is the HTTP gateway: JWT-authenticated routes in
// front of the session registry, with the conversation itself delivered
// over Server-Sent Events.
//
// GET /agent/chat opens the stream. The authenticated subject claim is
// the session id; optional query params start a turn (message), toggle
// speech synthesis (audio), or reset history (clear). Events are
// emitted as {type, content, toolName?, timestamp?} with types
// CONNECTED, USER, THINKING, AI_RESPONSE, AUDIO, ERROR, DONE, END.
//
// POST /agent/clear and GET /agent/status cover the non-streaming
// session controls; /healthz and /metrics are unauthenticated.
package server
