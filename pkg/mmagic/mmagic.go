package mmagic

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Version returns the current version of the package.
func Version() string { return "0.2.0" }

// Token represents a single analyzed unit of text.
type Token struct {
	Surface string // The text as it appears (e.g. "喜歡")
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
	// User is set for tokens that came from the user word list.
	User bool
}

// Analyzer handles text segmentation.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	return NewAnalyzerWithWords(nil)
}

// userPOS tags the entries of the user word list.
const userPOS = "詞"

// SymbolPOS is the part of speech the IPA dictionary gives punctuation and
// other symbols.
const SymbolPOS = "記号"

// NewAnalyzerWithWords creates a tokenizer that also knows words. At any
// position where one of words starts, only words are considered.
func NewAnalyzerWithWords(words []string) (*Analyzer, error) {
	opts := []tokenizer.Option{tokenizer.OmitBosEos()}
	if len(words) > 0 {
		records := make(dict.UserDictRecords, 0, len(words))
		for _, w := range words {
			records = append(records, dict.UserDicRecord{
				Text:   w,
				Tokens: []string{w},
				Yomi:   []string{w},
				Pos:    userPOS,
			})
		}
		udict, err := records.NewUserDict()
		if err != nil {
			return nil, err
		}
		opts = append(opts, tokenizer.UserDict(udict))
	}
	t, err := tokenizer.New(ipa.Dict(), opts...)
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens. Whitespace-only tokens are dropped.
func (a *Analyzer) Analyze(text string) ([]Token, error) {
	tokens := a.t.Tokenize(text)
	var result []Token

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// Determine primary POS safely
		primaryPOS := ""
		if features := token.Features(); len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:    token.Surface,
			PrimaryPOS: primaryPOS,
			User:       token.Class == tokenizer.USER,
		})
	}

	return result, nil
}

// IsPunctuation reports whether s consists only of punctuation and symbols.
func IsPunctuation(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// SplitSentences splits text on Chinese and Western sentence delimiters and
// newlines. Delimiters stay with their sentence; blank sentences are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '；', '!', '?', '\n':
			flush()
		}
	}
	flush()
	return sentences
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Pages annotated with pinyin or zhuyin would otherwise
// yield the annotation glued to every character ("漢hàn字zì").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}
