package translation

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrEmptyText 空文本错误
	ErrEmptyText = errors.New("empty text provided")

	// ErrNotEnoughText 页面文本太少，无法检测语言
	ErrNotEnoughText = errors.New("not enough text to detect language")

	// ErrDetectionUnsupported 提供商不支持语言检测
	ErrDetectionUnsupported = errors.New("language detection not supported")

	// ErrUnknownLanguage 无法解析的语言名称或代码
	ErrUnknownLanguage = errors.New("unknown language")
)

// CountError 提供商返回的条目数与提交的不一致
type CountError struct {
	Provider string
	Want     int
	Got      int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("%s: expected %d translations, got %d", e.Provider, e.Want, e.Got)
}
