package contracts

import (
	"errors"
	"fmt"
)

// ⭐ SSOT: 파이프라인 에러 분류는 여기서만 정의
var (
	// ErrMalformedRecord 음수 수량, NaN/Inf 가격 등 (행 제외, 실행 계속)
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownIdentity raw ID에 대한 master 없음 (raw ID를 master로 사용)
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrInsufficientHistory 10주 미만 (평가 제외, "no forecast")
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrPredictionUnavailable 외부 모델이 해당 row를 예측하지 못함 (row 단위 복구)
	ErrPredictionUnavailable = errors.New("prediction unavailable")

	// ErrPredictorDown 외부 모델 전체 장애 (평가 단계 실패)
	ErrPredictorDown = errors.New("predictor unavailable for every row")
)

// MalformedRecordError describes why a raw row was rejected
type MalformedRecordError struct {
	Row    int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrMalformedRecord) match
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
