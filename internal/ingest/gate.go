package ingest

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Gate rejects malformed transactions at the ingestion boundary
// ⭐ SSOT: S0 품질 게이트 (거부만 하고 보정하지 않음)
type Gate struct {
	validate *validator.Validate
	log      zerolog.Logger
}

// NewGate creates a gate. Field names in errors follow the json tags.
func NewGate(log zerolog.Logger) *Gate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &Gate{
		validate: v,
		log:      log.With().Str("component", "ingest.gate").Logger(),
	}
}

// Check validates one row. row is 1-based and only used for error messages.
func (g *Gate) Check(row int, t contracts.RawTransaction) error {
	switch {
	case !t.Finite():
		field := "unit_price"
		if !isFinite(t.Quantity) {
			field = "quantity"
		}
		return &contracts.MalformedRecordError{Row: row, Field: field, Reason: "non-finite value"}
	case t.OrderDate.IsZero():
		return &contracts.MalformedRecordError{Row: row, Field: "order_date", Reason: "missing"}
	}

	if err := g.validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &contracts.MalformedRecordError{Row: row, Field: fe.Field(), Reason: reason}
		}
		return &contracts.MalformedRecordError{Row: row, Field: "record", Reason: err.Error()}
	}

	return nil
}

// Filter returns the accepted rows plus one MalformedRecordError per rejected row.
// Rejected rows are dropped; the run continues.
func (g *Gate) Filter(ctx context.Context, txns []contracts.RawTransaction) ([]contracts.RawTransaction, []error) {
	accepted := make([]contracts.RawTransaction, 0, len(txns))
	var rejected []error

	for i, t := range txns {
		if i%10000 == 0 {
			select {
			case <-ctx.Done():
				return accepted, append(rejected, ctx.Err())
			default:
			}
		}

		if err := g.Check(i+1, t); err != nil {
			g.log.Debug().Err(err).Str("entity_key", t.EntityKey).Msg("transaction rejected")
			rejected = append(rejected, err)
			continue
		}
		accepted = append(accepted, t)
	}

	g.log.Info().
		Int("total", len(txns)).
		Int("accepted", len(accepted)).
		Int("rejected", len(rejected)).
		Msg("ingest gate completed")

	return accepted, rejected
}
