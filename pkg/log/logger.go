package log

import "time"

// Logger is the structured logger forkers and the watcher write to.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err logs err under "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Pid logs a child's process id under "pid".
func Pid(pid int) Field {
	return Field{Key: "pid", Value: pid}
}

// ForkID logs the id shared by a fork's parent and child lines under
// "fork_id". A child finds it in FORKPIPE_FORK_ID.
func ForkID(id string) Field {
	return Field{Key: "fork_id", Value: id}
}
