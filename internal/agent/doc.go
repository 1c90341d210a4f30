// Package agent implements the conversational email agent.
//
// An Agent owns one user's conversational state: a role-tagged history
// that always begins with exactly one system entry, a turn counter, the
// last-search cache, and the audio flag. HandleUserInput drives one
// turn at a time; overlapping calls for the same agent are rejected
// with a "turn in progress" ERROR event rather than interleaved.
//
// # Turn lifecycle
//
// A turn moves through THINKING, then either ends immediately on a
// detected farewell (AI_RESPONSE + END, no model call) or runs the turn
// executor: one model round with the fixed tool catalog, sequential
// tool execution against the mail collaborator, a single tool-role
// history entry carrying all results, and a narration pass whose text
// is the answer (AUDIO when enabled, AI_RESPONSE, DONE). Any internal
// failure becomes a single ERROR event; nothing escapes to the caller.
//
// # Tool catalog
//
// The catalog is closed: send_email, read_email, search_emails, and the
// label operations (list, create, update, delete, get-or-create). A
// search that returns results replaces the last-search cache wholesale;
// an empty result clears it.
//
// # Reference resolution
//
// read_email accepts a natural-language reference ("the first one",
// "the email from Sarah") resolved against the last-search cache by the
// Resolver: ordinals and sender/subject substrings are handled by
// rules, everything else by a model call constrained to a bare integer,
// and any unresolvable phrase falls back to index 0. The resolver never
// returns an error.
package agent
