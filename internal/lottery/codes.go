package lottery

import (
	"errors"
)

// Machine-readable error codes carried in API error envelopes.
const (
	CodeNotFound                 = "NOT_FOUND"
	CodeAlreadyDrawn             = "ALREADY_DRAWN"
	CodeRoundOutOfOrder          = "ROUND_OUT_OF_ORDER"
	CodeInsufficientParticipants = "INSUFFICIENT_PARTICIPANTS"
	CodeConcurrentDraw           = "CONCURRENT_DRAW"
	CodeInvalidCount             = "INVALID_COUNT"
	CodeValidation               = "VALIDATION_ERROR"
	CodeInternal                 = "INTERNAL_ERROR"
)

// Describe returns the code and structured details for a domain error.
// Unknown errors yield CodeInternal and nil details.
func Describe(err error) (string, map[string]interface{}) {
	var (
		notFound     *NotFoundError
		already      *AlreadyDrawnError
		outOfOrder   *RoundOutOfOrderError
		insufficient *InsufficientParticipantsError
		concurrent   *ConcurrentDrawError
		invalidCount *InvalidCountError
		validation   *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return CodeNotFound, map[string]interface{}{"entity": notFound.Entity, "id": notFound.ID}
	case errors.As(err, &already):
		return CodeAlreadyDrawn, map[string]interface{}{"roundId": already.RoundID}
	case errors.As(err, &outOfOrder):
		return CodeRoundOutOfOrder, map[string]interface{}{
			"roundId":            outOfOrder.RoundID,
			"blockingRoundId":    outOfOrder.BlockingRoundID,
			"blockingOrderIndex": outOfOrder.BlockingOrderIndex,
		}
	case errors.As(err, &insufficient):
		return CodeInsufficientParticipants, map[string]interface{}{
			"required":  insufficient.Required,
			"available": insufficient.Available,
			"shortage":  insufficient.Shortage(),
		}
	case errors.As(err, &concurrent):
		return CodeConcurrentDraw, map[string]interface{}{"roundId": concurrent.RoundID, "activityId": concurrent.ActivityID}
	case errors.As(err, &invalidCount):
		return CodeInvalidCount, map[string]interface{}{"count": invalidCount.Count, "available": invalidCount.Available}
	case errors.As(err, &validation):
		return CodeValidation, map[string]interface{}{"field": validation.Field}
	}
	return CodeInternal, nil
}

// FromCode rebuilds a typed error from an envelope received over the wire.
// Numbers in details may arrive as float64 after JSON decoding. It returns
// nil for codes it does not know.
func FromCode(code, message string, details map[string]interface{}) error {
	i64 := func(k string) int64 { return int64(num(details[k])) }
	i := func(k string) int { return int(num(details[k])) }
	switch code {
	case CodeNotFound:
		entity, _ := details["entity"].(string)
		return &NotFoundError{Entity: entity, ID: i64("id")}
	case CodeAlreadyDrawn:
		return &AlreadyDrawnError{RoundID: i64("roundId")}
	case CodeRoundOutOfOrder:
		return &RoundOutOfOrderError{RoundID: i64("roundId"), BlockingRoundID: i64("blockingRoundId"), BlockingOrderIndex: i("blockingOrderIndex")}
	case CodeInsufficientParticipants:
		return &InsufficientParticipantsError{Required: i("required"), Available: i("available")}
	case CodeConcurrentDraw:
		return &ConcurrentDrawError{RoundID: i64("roundId"), ActivityID: i64("activityId")}
	case CodeInvalidCount:
		return &InvalidCountError{Count: i("count"), Available: i("available")}
	case CodeValidation:
		field, _ := details["field"].(string)
		return &ValidationError{Field: field, Message: message}
	}
	return nil
}

func num(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
