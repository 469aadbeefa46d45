package orchestration

import "strings"

// confirmationPhrases are substrings that indicate the customer explicitly
// acknowledged resolution. Hand-tuned list; kept literal rather than derived.
var confirmationPhrases = []string{
	"thank",
	"thanks",
	"thank you",
	"thx",
	"ty",
	"solved",
	"fixed",
	"resolved",
	"sorted",
	"perfect",
	"great",
	"awesome",
	"excellent",
	"got it",
	"got that",
	"all good",
	"works now",
	"that worked",
	"problem solved",
	"issue resolved",
	"no further",
	"never mind",
	"all set",
}

// DetectConfirmation reports whether a message reads as the customer
// confirming their issue is resolved.
func DetectConfirmation(message string) bool {
	lowered := strings.ToLower(message)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
