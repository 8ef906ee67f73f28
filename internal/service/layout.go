package service

import "strings"

// Keys of a US QWERTY keyboard and the Russian ЙЦУКЕН letters in the same positions.
const (
	qwertyKeys = "qwertyuiop[]asdfghjkl;'zxcvbnm,./"
	jcukenKeys = "йцукенгшщзхъфывапролджэячсмитьбю."
)

var layoutMap = func() map[rune]rune {
	from, to := []rune(qwertyKeys), []rune(jcukenKeys)
	m := make(map[rune]rune, len(from))
	for i, r := range from {
		m[r] = to[i]
	}
	return m
}()

// FixKeyboardLayout retypes text entered with the wrong layout active, so "vjkjrj"
// becomes "молоко". The second result is false when nothing could be mapped.
func FixKeyboardLayout(s string) (string, bool) {
	changed := false
	fixed := strings.Map(func(r rune) rune {
		if mapped, ok := layoutMap[r]; ok {
			changed = true
			return mapped
		}
		return r
	}, strings.ToLower(s))
	return fixed, changed
}
