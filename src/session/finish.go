package session

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode"
)

// RunFinishAction starts command without waiting for it. The program may be
// quoted, and an unquoted program path may contain spaces as long as it
// names an executable: the shortest whitespace-delimited prefix that
// resolves wins, the way CreateProcess treats unquoted paths.
func RunFinishAction(_ context.Context, command string) error {
	program, args := splitCommand(command)
	if program == "" {
		return nil
	}
	cmd := exec.Command(program, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", program, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func splitCommand(command string) (string, []string) {
	s := strings.TrimSpace(command)
	if s == "" {
		return "", nil
	}
	if s[0] != '"' && s[0] != '\'' {
		for i, r := range s {
			if !unicode.IsSpace(r) {
				continue
			}
			if _, err := exec.LookPath(s[:i]); err == nil {
				return s[:i], tokenize(s[i:])
			}
		}
		if _, err := exec.LookPath(s); err == nil {
			return s, nil
		}
	}
	fields := tokenize(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// tokenize splits on whitespace outside single or double quotes. Backslashes
// are literal so Windows paths survive unquoted.
func tokenize(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				out = append(out, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		out = append(out, cur.String())
	}
	return out
}
