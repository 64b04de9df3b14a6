// 指示: miu200521358
package collada

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// idRegistry は文書内で一意なIDを払い出す。
type idRegistry struct {
	used map[string]struct{}
}

// newIDRegistry は空のID登録簿を生成する。
func newIDRegistry() *idRegistry {
	return &idRegistry{used: map[string]struct{}{}}
}

// unique は名前をID文字へ整形し、重複時は連番を付けて返す。
func (r *idRegistry) unique(name string) string {
	base := sanitizeID(name)
	id := base
	for i := 2; ; i++ {
		if _, exists := r.used[id]; !exists {
			break
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
	r.used[id] = struct{}{}
	return id
}

// sanitizeID は名前をNFKC正規化し、XML ID に使えない文字を '_' に置き換える。
func sanitizeID(name string) string {
	normalized := norm.NFKC.String(strings.TrimSpace(name))
	var builder strings.Builder
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-', r == '.':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	id := builder.String()
	if id == "" {
		return "_"
	}
	first := []rune(id)[0]
	if !unicode.IsLetter(first) && first != '_' {
		id = "_" + id
	}
	return id
}
