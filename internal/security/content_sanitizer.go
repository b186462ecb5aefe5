// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は投稿本文・タイトル・応募メッセージの入力をサニタイズし、
// XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はユーザー入力のサニタイズ機能のインターフェースを定義する。
// 投稿・応募の保存前に使用される。
type ContentSanitizer interface {
	// SanitizeBody は投稿本文のHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, strong, em）のみを通過させる。
	// aタグはhttpsの絶対URLのみ許可し、target="_blank"とrel="noopener noreferrer"を付与する。
	SanitizeBody(rawHTML string) string

	// SanitizeText はタグをすべて除去し、前後の空白を取り除いたテキストを返す。
	// タイトルや応募メッセージなどプレーンテキストの項目に使用する。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	body  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// 初期化時に本文用とプレーンテキスト用の2つのポリシーを構築する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		body:  p,
		plain: bluemonday.StrictPolicy(),
	}
}

// SanitizeBody は投稿本文のHTMLをサニタイズする。
func (s *contentSanitizer) SanitizeBody(rawHTML string) string {
	return strings.TrimSpace(s.body.Sanitize(rawHTML))
}

// SanitizeText はタグを除去したテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.plain.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizer = (*contentSanitizer)(nil)
