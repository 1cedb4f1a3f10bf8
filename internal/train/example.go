package train

import "github.com/samcharles93/gruwiki/internal/corpus"

// Example builds the (input, target) pair for one sentence. With full set,
// the whole sentence is fed after START and END is appended to the target;
// otherwise the last token is dropped from the input and the target is the
// sentence itself.
func Example(sentence []int, full bool) (input, target []int) {
	if full || len(sentence) <= 1 {
		input = make([]int, 0, len(sentence)+1)
		input = append(input, corpus.StartToken)
		input = append(input, sentence...)
		target = make([]int, 0, len(sentence)+1)
		target = append(target, sentence...)
		target = append(target, corpus.EndToken)
		return input, target
	}
	input = make([]int, 0, len(sentence))
	input = append(input, corpus.StartToken)
	input = append(input, sentence[:len(sentence)-1]...)
	target = append([]int(nil), sentence...)
	return input, target
}
