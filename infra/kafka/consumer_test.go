package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestLineOf(t *testing.T) {
	cases := map[string]string{
		"SUB LO B Ffuj 200 13\n": "SUB LO B Ffuj 200 13",
		"CXL Ffuj\r\n":           "CXL Ffuj",
		"END":                    "END",
		"":                       "",
		"SUB MO S x 5 \n":        "SUB MO S x 5 ",
	}
	for in, want := range cases {
		assert.Equal(t, want, lineOf(kafka.Message{Value: []byte(in)}), "value %q", in)
	}
}
