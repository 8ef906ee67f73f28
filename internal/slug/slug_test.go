package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science Fiction", "science-fiction"},
		{"Sci-Fi/Fantasy", "sci-fi-fantasy"},
		{"  Crème brûlée  ", "creme-brulee"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestTransliterate(t *testing.T) {
	assert.Equal(t, "Zavtrak", Transliterate("Завтрак"))
	assert.Equal(t, "obed", Transliterate("обед"))
	assert.Equal(t, "uzhin 2", Transliterate("ужин 2"))
	assert.Equal(t, "Schi", Transliterate("Щи"))
}

func TestMake(t *testing.T) {
	assert.Equal(t, "zavtrak", Make("Завтрак", 200))
	assert.Equal(t, "bystryj-uzhin", Make("Быстрый ужин", 200))
	assert.Equal(t, "lunch", Make("Lunch", 200))

	long := Make(strings.Repeat("ab ", 100), 10)
	assert.Equal(t, "ab-ab-ab-a", long)
	assert.LessOrEqual(t, len(long), 10)
}
