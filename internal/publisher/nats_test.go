package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	cases := []struct {
		prefix, origin, want string
	}{
		{"itineraries", "Malmö C", "itineraries.Malmö_C"},
		{"itineraries", "  Lund C ", "itineraries.Lund_C"},
		{"itineraries", "", "itineraries.any"},
		{"itin.eraries", "a.b>c*d/e", "itin_eraries.a_b_c_d_e"},
		{"", "Ystad", "_.Ystad"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Subject(c.prefix, c.origin), "%q %q", c.prefix, c.origin)
	}
}
