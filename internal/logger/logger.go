package logger

import (
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/samber/oops"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	Redaction = "***"
	Separator = ";"
)

// PIIFields never reach the log sink in clear text.
var PIIFields = []string{"name", "email", "phone", "ssn", "password"}

// Load builds the process logger. Unknown formats fall back to text.
func Load(format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{ReplaceAttr: redact}

	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func redact(groups []string, a slog.Attr) slog.Attr {
	for _, f := range PIIFields {
		if a.Key == f {
			return slog.String(a.Key, Redaction)
		}
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, FilterDatum(PIIFields, Redaction, a.Value.String(), Separator))
	}
	return a
}

// FilterDatum replaces the value of every field=value<separator> pair in message.
func FilterDatum(fields []string, redaction, message, separator string) string {
	sep := regexp.QuoteMeta(separator)
	for _, f := range fields {
		re := regexp.MustCompile(regexp.QuoteMeta(f) + "=.*?" + sep)
		message = re.ReplaceAllLiteralString(message, f+"="+redaction+separator)
	}
	return message
}

// LogError logs err with its oops code and context when it carries them.
func LogError(logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
		return
	}
	logger.Error(msg, "error", err)
}
