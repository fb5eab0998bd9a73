package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// EmailID records the message record identifier under the key "email_id".
// If id is nil, it returns an empty Attr.
func EmailID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("email_id", id)
}

// SenderID records the sender identifier under the key "sender_id".
// If id is nil, it returns an empty Attr.
func SenderID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("sender_id", id)
}

// JobID records the queue job identifier under the key "job_id".
func JobID(id string) slog.Attr {
	return slog.String("job_id", id)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
