// ABOUTME: Splits a command line into arguments with shell-style quoting via google/shlex
// ABOUTME: Quoted runs keep their spaces; a word starting with # is kept rather than read as a comment

package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// ErrUnterminatedQuote is returned when a quote is opened and never closed.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// hashStandIn replaces # while splitting. shlex drops everything from a
// word-initial # to the end of the line.
const hashStandIn = "\uE000"

// SplitArgs breaks line into whitespace separated arguments. "a b" and 'a b'
// are single arguments, and "" is an empty argument.
func SplitArgs(line string) ([]string, error) {
	words, err := shlex.Split(strings.ReplaceAll(line, "#", hashStandIn))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnterminatedQuote, err)
	}
	if len(words) == 0 {
		return nil, nil
	}
	for i, w := range words {
		words[i] = strings.ReplaceAll(w, hashStandIn, "#")
	}
	return words, nil
}
