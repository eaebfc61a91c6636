// Package notice carries user-facing messages: flash notices shown on the
// next page and advisories that wrap internal errors with a safe message.
package notice

import "errors"

// Level controls how a notice is styled.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a one-shot message displayed at the top of the next page.
type Notice struct {
	Level Level
	Text  string
}

func Info(text string) Notice    { return Notice{Level: LevelInfo, Text: text} }
func Success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func Warning(text string) Notice { return Notice{Level: LevelWarning, Text: text} }
func Error(text string) Notice   { return Notice{Level: LevelError, Text: text} }

// Advisory is an error whose Text is safe to show to the user. The wrapped
// error keeps the detail for logs.
type Advisory struct {
	Text  string
	Level Level
	Err   error
}

func (a *Advisory) Error() string {
	if a.Err == nil {
		return a.Text
	}
	return a.Text + ": " + a.Err.Error()
}

func (a *Advisory) Unwrap() error { return a.Err }

// Advise wraps err with a user-safe message at warning level.
func Advise(err error, text string) error {
	return &Advisory{Text: text, Level: LevelWarning, Err: err}
}

// Message returns the user-safe text of the first Advisory in err's chain.
func Message(err error) (string, bool) {
	var a *Advisory
	if errors.As(err, &a) {
		return a.Text, true
	}
	return "", false
}

// From converts err into a notice, using fallback when err carries no
// advisory.
func From(err error, fallback string) Notice {
	var a *Advisory
	if errors.As(err, &a) {
		lvl := a.Level
		if lvl == "" {
			lvl = LevelWarning
		}
		return Notice{Level: lvl, Text: a.Text}
	}
	return Error(fallback)
}
