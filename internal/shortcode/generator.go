package shortcode

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

const (
	alphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength = 6

	// Допустимая длина кастомного кода
	MinLength = 2
	MaxLength = 50
)

var formatRe = regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9_-]{%d,%d}$`, MinLength, MaxLength))

// Generator генератор случайных коротких кодов.
// Коды не секретны, криптостойкий источник не нужен.
type Generator struct {
	alphabet string
	length   int
}

// NewGenerator создаёт генератор 6-символьных кодов из [a-zA-Z0-9]
func NewGenerator() *Generator {
	return &Generator{
		alphabet: alphabet,
		length:   codeLength,
	}
}

// Generate возвращает нового кандидата, ошибок не бывает
func (g *Generator) Generate() string {
	b := make([]byte, g.length)
	for i := range b {
		b[i] = g.alphabet[rand.IntN(len(g.alphabet))]
	}
	return string(b)
}

// ValidFormat проверяет формат кода: MinLength..MaxLength символов [A-Za-z0-9_-]
func ValidFormat(code string) bool {
	return formatRe.MatchString(code)
}

// IsReserved сегменты пути, которые никогда не считаются коротким кодом
func IsReserved(segment string) bool {
	return segment == "" || segment == "favicon.ico"
}
