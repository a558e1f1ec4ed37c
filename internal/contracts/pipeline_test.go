package contracts

import (
	"errors"
	"fmt"
	"testing"
)

func TestStage_ShortName(t *testing.T) {
	for i, stage := range AllStages() {
		want := fmt.Sprintf("S%d", i)
		if got := stage.ShortName(); got != want {
			t.Errorf("%s.ShortName() = %s, want %s", stage, got, want)
		}
	}
	if Stage("S9_NOPE").ShortName() != "UNKNOWN" {
		t.Error("unknown stage should map to UNKNOWN")
	}
}

func TestIsValidStage(t *testing.T) {
	if !IsValidStage("S2_FEATURES") {
		t.Error("S2_FEATURES should be valid")
	}
	if IsValidStage("S5_PORTFOLIO") {
		t.Error("S5_PORTFOLIO should not be valid")
	}
}

func TestMalformedRecordError_Is(t *testing.T) {
	var err error = &MalformedRecordError{Row: 3, Field: "quantity", Reason: "negative"}
	wrapped := fmt.Errorf("ingest: %w", err)

	if !errors.Is(wrapped, ErrMalformedRecord) {
		t.Error("wrapped MalformedRecordError should match ErrMalformedRecord")
	}

	var mre *MalformedRecordError
	if !errors.As(wrapped, &mre) || mre.Row != 3 {
		t.Error("errors.As should recover the row number")
	}
}

func TestLevel_EntityKey(t *testing.T) {
	txn := RawTransaction{OriginalCustomerID: "7", EntityKey: "SKU-1", Category: "Paint"}

	tests := []struct {
		level Level
		want  string
	}{
		{LevelSKU, "SKU-1"},
		{LevelCategory, "Paint"},
		{LevelCustomer, "7"},
	}
	for _, tt := range tests {
		if got := tt.level.EntityKey(txn); got != tt.want {
			t.Errorf("%s.EntityKey() = %s, want %s", tt.level, got, tt.want)
		}
	}

	if _, err := ParseLevel("region"); err == nil {
		t.Error("ParseLevel(region) should fail")
	}
}
