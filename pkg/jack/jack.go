// Package jack tokenizes and parses Jack classes and renders them as the
// XML analyzer output.
package jack

// Analyze runs the tokenizer and parser over src and returns the class XML.
func Analyze(src string) (string, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return "", err
	}
	class, err := Parse(tokens)
	if err != nil {
		return "", err
	}
	return class.XML(), nil
}
