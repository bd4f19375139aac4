// Package security は利用者が入力する自由記述テキストのサニタイズを提供する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxObservationLength は観察メモとして保存する最大文字数。
const MaxObservationLength = 500

// TextSanitizer は自由記述テキストを保存可能な平文に変換する。
type TextSanitizer interface {
	// Sanitize はすべてのHTMLタグを除去し、前後の空白を取り除いた平文を返す。
	// script, styleの中身も除去する。MaxObservationLength文字を超える部分は切り捨てる。
	Sanitize(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyによるTextSanitizerの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はテキストをサニタイズする。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyはエンティティをエスケープするため、平文として保存する前に戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > MaxObservationLength {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:MaxObservationLength]))
	}
	return text
}
