// Package extraction turns raw per-platform music metadata into normalized
// records. It builds one batched prompt covering every context, sends it to a
// chat-completion model, and defensively parses the free-text reply back into
// validated records. Transport errors propagate to the caller; malformed model
// output degrades to fewer (possibly zero) records instead of failing.
package extraction
