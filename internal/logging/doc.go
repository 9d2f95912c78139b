// Package logging provides leveled logging for the indexer service.
//
// The log level is controlled by the LOG_LEVEL environment variable
// (debug, info, warn, error) or the DEBUG shortcut (DEBUG=true enables
// debug logging). The default level is info.
package logging
