// Package cmdline splits a shell command line into an argument vector.
package cmdline

import "strings"

const separators = " \t"

// Parse splits line on spaces and tabs into an argument vector. A token that
// starts with a single quote extends to the next single quote and is taken
// verbatim without the quotes; an unterminated quote runs to the end of the
// line.
//
// If the last token starts with '&' it is dropped and background is true.
func Parse(line string) (argv []string, background bool) {
	s := strings.TrimRight(line, "\r\n")

	for {
		s = strings.TrimLeft(s, separators)
		if s == "" {
			break
		}

		if s[0] == '\'' {
			end := strings.IndexByte(s[1:], '\'')
			if end < 0 {
				argv = append(argv, s[1:])
				break
			}

			argv = append(argv, s[1:1+end])
			s = s[end+2:]

			continue
		}

		end := strings.IndexAny(s, separators)
		if end < 0 {
			argv = append(argv, s)
			break
		}

		argv = append(argv, s[:end])
		s = s[end:]
	}

	if len(argv) > 0 && strings.HasPrefix(argv[len(argv)-1], "&") {
		argv = argv[:len(argv)-1]
		background = true
	}

	return argv, background
}
