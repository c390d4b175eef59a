package parse

// TokenStream wraps a Tokenizer and buffers at most one token.
type TokenStream struct {
	tokenizer *Tokenizer
	peeked    *Token
}

func NewTokenStream(src string) *TokenStream {
	return &TokenStream{tokenizer: NewTokenizer(src)}
}

// Peek returns the next token without consuming it.
func (s *TokenStream) Peek() (Token, error) {
	if s.peeked == nil {
		token, err := s.tokenizer.NextToken()
		if err != nil {
			return Token{}, err
		}
		s.peeked = &token
	}
	return *s.peeked, nil
}

// Next consumes the buffered token if any, otherwise it pulls a fresh one.
func (s *TokenStream) Next() (Token, error) {
	if s.peeked != nil {
		token := *s.peeked
		s.peeked = nil
		return token, nil
	}
	return s.tokenizer.NextToken()
}
