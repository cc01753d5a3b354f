package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int
	}{
		{"none", "No citations here.", nil},
		{"single", "A claim [Page 3].", []int{3}},
		{"order of appearance", "First [Page 7], then [Page 2], then [Page 7] again.", []int{7, 2, 7}},
		{"multi digit", "See [Page 142].", []int{142}},
		{"malformed skipped", "[Page ] [page 3] [Page3] [Page 4]", []int{4}},
		{"adjacent", "[Page 1][Page 2]", []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCitations(tt.in))
		})
	}
}

func TestUniquePages(t *testing.T) {
	assert.Equal(t, []int{2, 7}, UniquePages([]int{7, 2, 7, 2, 2}))
	assert.Nil(t, UniquePages(nil))
}
