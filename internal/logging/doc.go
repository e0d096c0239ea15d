// Package logging provides structured logging for the index engine and its
// tools.
//
// # Overview
//
// Logger is a small key-value interface backed by zap. The storage layers
// depend only on the interface, so tests and library users can pass
// NewNop() and pay nothing.
//
//   - Four levels: debug, info, warn, error
//   - Text (console) and JSON output
//   - Session IDs that tag every entry of one run
//
// # Creating a Logger
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/obaidx.log",
//	})
//	defer logger.Sync()
//
// For tests, use a no-op logger or capture output:
//
//	logger := logging.NewNop()
//	logger := logging.NewWithWriter(logging.Config{Level: "debug", Format: "json"}, &buf)
//
// # Structured Logging
//
//	logger.Info("opened index",
//	    "path", "names.idx",
//	    "order", 64,
//	)
//
// Output (JSON format):
//
//	{"level":"info","ts":"2026-02-18T10:30:00.000Z","msg":"opened index","path":"names.idx","order":64}
//
// # Sessions
//
//	session := logger.WithSession(logging.NewSessionID())
//	session.Info("benchmark started") // includes session_id
package logging
