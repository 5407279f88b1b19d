// Package accounts turns the account list file into canonical account
// references.
//
// The list has one account per line in the form "Label: Identifier", where
// Identifier is a numeric SteamID64 or a community profile URL of the form
// /profiles/<id> or /id/<vanity>. Blank lines and lines starting with '#'
// are ignored. Malformed lines are skipped with a warning.
package accounts

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/errors"
)

// Entry is one well-formed line of the account list, before resolution.
type Entry struct {
	Line       int
	Label      string
	Identifier string
}

// Parse reads an account list. Malformed lines are logged at warn level
// and skipped; only read errors are returned.
func Parse(r io.Reader, logger *log.Logger) ([]Entry, error) {
	if logger == nil {
		logger = discardLogger()
	}
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		raw := sc.Text()
		if n == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		e, err := ParseLine(raw)
		if err != nil {
			logger.Warn("skipping line", "line", n, "reason", errors.UserMessage(err), "text", raw)
			continue
		}
		if e == nil {
			continue
		}
		e.Line = n
		out = append(out, *e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read account list")
	}
	return out, nil
}

// ParseFile reads the account list at path.
func ParseFile(path string, logger *log.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open account list %s", path)
	}
	defer f.Close()
	return Parse(f, logger)
}

// ParseLine parses one line. It returns (nil, nil) for blank and comment
// lines and an INVALID_ACCOUNT error for malformed ones.
func ParseLine(raw string) (*Entry, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	label, ident, ok := strings.Cut(line, ":")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidAccount, "missing ':'")
	}
	label, ident = strings.TrimSpace(label), strings.TrimSpace(ident)
	if label == "" || ident == "" {
		return nil, errors.New(errors.ErrCodeInvalidAccount, "not 'Label: Value'")
	}
	if err := errors.ValidateLabel(label); err != nil {
		return nil, err
	}
	if err := errors.ValidateIdentity(ident); err != nil {
		return nil, err
	}
	return &Entry{Label: label, Identifier: ident}, nil
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
