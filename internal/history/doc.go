// Package history tracks playback events in an append-only JSONL log.
// The format is deliberately dumb so external player hooks (an mpv
// lua script, a shell one-liner) can append to the same file.
package history
