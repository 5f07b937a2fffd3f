package pagetrans

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrStaleBatch 批次已应用、已被新的提取替换或在还原之前提取
	ErrStaleBatch = errors.New("batch is no longer pending")

	// ErrCycleInFlight 已有翻译周期在进行
	ErrCycleInFlight = errors.New("translation cycle already in flight")

	// ErrNoTargetLanguage 未设置目标语言
	ErrNoTargetLanguage = errors.New("no target language")

	// ErrNoPendingBatch 还没有提取过文本
	ErrNoPendingBatch = errors.New("no pending extraction batch")
)

// CountMismatchError 翻译结果数量与提取数量不一致
type CountMismatchError struct {
	Want int
	Got  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: %d texts, %d translations", e.Want, e.Got)
}
