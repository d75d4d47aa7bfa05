package agenda

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"url with scheme inside text", "Join at https://meet.example.com/abc room 4", "https://meet.example.com/abc", true},
		{"bare host gets https", "meet.example.com/abc", "https://meet.example.com/abc", true},
		{"other schemes are kept", "ftp://files.example.net/x", "ftp://files.example.net/x", true},
		{"truncated at tab", "https://a.example.io/p\tnext", "https://a.example.io/p", true},
		{"truncated at newline", "zoom.us/j/1\nPasscode 42", "https://zoom.us/j/1", true},
		{"trailing punctuation kept", "(see teams.ms/l/abc)", "https://teams.ms/l/abc)", true},
		{"uppercase host", "WWW.EXAMPLE.COM", "https://WWW.EXAMPLE.COM", true},
		{"suffix longer than four letters", "example.company", "", false},
		{"no url", "Room 4, second floor", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractURL(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
