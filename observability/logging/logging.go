package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// fieldNames maps slog's default record keys onto the field names the
// treasury log pipeline indexes on.
var fieldNames = map[string]string{
	slog.TimeKey:    "timestamp",
	slog.LevelKey:   "severity",
	slog.MessageKey: "message",
}

// Setup wires process-wide structured JSON logging and returns the root
// logger tagged with the service name and environment. Development
// environments log at debug level, everything else at info. The stdlib
// logger is routed through the same handler so dependency output stays
// structured.
func Setup(service, env string) *slog.Logger {
	service = strings.TrimSpace(service)
	env = strings.TrimSpace(env)

	level := slog.LevelInfo
	switch env {
	case "dev", "development":
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if name, ok := fieldNames[attr.Key]; ok {
				attr.Key = name
				if name == "severity" {
					attr.Value = slog.StringValue(strings.ToUpper(attr.Value.String()))
				}
			}
			return attr
		},
	})

	root := slog.New(handler)
	if service != "" {
		root = root.With("service", service)
	}
	if env != "" {
		root = root.With("env", env)
	}
	slog.SetDefault(root)

	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(slog.NewLogLogger(handler, level).Writer())

	return root
}
