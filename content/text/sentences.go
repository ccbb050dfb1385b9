// Package text has helpers to prepare item text for placement: sentence and
// word splitting and flattening of markup.
package text

import (
	"iter"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
)

type Splitter struct {
	*sentences.DefaultSentenceTokenizer
}

// NewSplitter returns sentence splitter backed by english punkt model. When
// model could not be loaded nil is returned, nil splitter treats whole input
// as a single sentence.
func NewSplitter(log *zap.Logger) *Splitter {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("Unable to load sentences tokenizer data, turning off sentence splitting", zap.Error(err))
		return nil
	}
	return &Splitter{tokenizer}
}

// Split returns slice of sentences.
// For memory-efficient streaming, use Sentences iterator instead.
func (s *Splitter) Split(in string) []string {
	var res []string
	for sentence := range s.Sentences(in) {
		res = append(res, sentence)
	}
	return res
}

// Sentences returns an iterator over sentences. Concatenation of all
// produced sentences is equal to the input.
func (s *Splitter) Sentences(in string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if s == nil || s.DefaultSentenceTokenizer == nil {
			if len(in) > 0 {
				yield(in)
			}
			return
		}

		sentences := s.Tokenize(in)
		if len(sentences) == 0 {
			return
		}

		for i := 0; i < len(sentences)-1; i++ {
			text := sentences[i].Text

			// Tokenizer attaches spaces trailing the sentence to the next
			// one, move them back so sentence boundary is after the spaces.
			nextText := sentences[i+1].Text
			for idx, sym := range nextText {
				if !unicode.IsSpace(sym) {
					text = text + nextText[0:idx]
					sentences[i+1].Text = nextText[idx:]
					break
				}
			}
			if !yield(text) {
				return
			}
		}
		yield(sentences[len(sentences)-1].Text)
	}
}

// SplitWords returns slice of words.
// For memory-efficient streaming, use Words iterator instead.
func (*Splitter) SplitWords(in string, ignoreNBSP bool) []string {
	var res []string
	for w := range Words(in, ignoreNBSP) {
		res = append(res, w)
	}
	return res
}

// Words returns an iterator over words, empty words are skipped. The
// ignoreNBSP parameter determines whether NBSP (0xA0) is treated as a
// separator.
func Words(in string, ignoreNBSP bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, sym := range in {
			if isSeparator(sym, ignoreNBSP) {
				if start >= 0 {
					if !yield(in[start:i]) {
						return
					}
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			yield(in[start:])
		}
	}
}

func isSeparator(r rune, ignoreNBSP bool) bool {
	if uint32(r) <= unicode.MaxLatin1 {
		switch r {
		// exclude NBSP from the list of white space separators for latin1 symbols
		case '\t', '\n', '\v', '\f', '\r', ' ', 0x85:
			return true
		case 0xA0: // NBSP
			return ignoreNBSP
		}
		return false
	}
	return unicode.IsSpace(r)
}
