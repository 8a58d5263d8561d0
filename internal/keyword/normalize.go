// Package keyword 提供查询文本的归一化、同义词族扩展与关键词提取。
package keyword

import (
	"strings"

	"golang.org/x/text/width"
)

// separators 比较前需要剥离的分隔/标点字符。
// 只影响比较，绝不用于改写展示给用户的文本。
const separators = " \t\r\n_-·.．，,、/\\()（）[]【】《》<>「」:：;；!！?？~～*＊+＋'\"“”‘’"

// Normalize 归一化文本用于比较：全半角折叠、转小写、剥离分隔符。
// 幂等：Normalize(Normalize(s)) == Normalize(s)。
func Normalize(s string) string {
	s = width.Fold.String(s)
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(separators, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
