package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger. Request logging, the audit
// trail and token rejection warnings all write JSON lines through it so
// the API's output stays machine-parseable on one stream.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest marshals the entry as a single JSON line. Entries without a
// level are stamped info; a marshal failure is reported in-band instead of
// silently dropping the entry.
func LogRequest(entry map[string]any) {
	if entry == nil {
		entry = map[string]any{}
	}
	if _, ok := entry["level"]; !ok {
		entry["level"] = "info"
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry not serializable"}`)
		return
	}
	Logger().Println(string(data))
}
