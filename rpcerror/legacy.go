package rpcerror

import "regexp"

// messageRules is an ordered list of rules used to classify errors that
// arrive as text. The first matching rule wins, so more specific patterns
// must come first.
var messageRules = []struct {
	pattern *regexp.Regexp
	kind    string
}{
	{regexp.MustCompile(`^account .*? does not exist while viewing$`), "AccountDoesNotExist"},
	{regexp.MustCompile(`^Account .*? doesn't exist$`), "AccountDoesNotExist"},
	{regexp.MustCompile(`^access key .*? does not exist while viewing$`), "AccessKeyDoesNotExist"},
	{regexp.MustCompile(`wasm execution failed with error: FunctionCallError\(CompilationError\(CodeDoesNotExist`), "CodeDoesNotExist"},
	{regexp.MustCompile(`Transaction nonce \d+ must be larger than nonce of the used access key \d+`), "InvalidNonce"},
}

// ClassifyMessage returns the kind of a ledger error that arrived as text.
// KindUntyped is returned when no rule matches.
func ClassifyMessage(text string) string {
	if text == "" {
		return KindUntyped
	}
	for _, r := range messageRules {
		if r.pattern.MatchString(text) {
			return r.kind
		}
	}
	return KindUntyped
}
