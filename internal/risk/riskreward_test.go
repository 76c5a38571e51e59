package risk

import (
	"math"
	"testing"

	"papertraderv1/internal/model"
)

func TestValidate_LongAcceptsAtFloor(t *testing.T) {
	// Risk 5, reward 10: ratio exactly 2.0 must pass.
	c := Validate(model.SideLong, 100, 95, 110, 2.0)
	if !c.Valid {
		t.Fatalf("ratio exactly at minimum should pass: %+v", c)
	}
	if math.Abs(c.Ratio-2.0) > 1e-9 {
		t.Errorf("ratio: got %f, want 2.0", c.Ratio)
	}
}

func TestValidate_LongRejectsBelowFloor(t *testing.T) {
	// Risk 5, reward 9: ratio 1.8.
	c := Validate(model.SideLong, 100, 95, 109, 2.0)
	if c.Valid {
		t.Fatalf("ratio 1.8 should fail against minimum 2.0: %+v", c)
	}
}

func TestValidate_ShortGeometry(t *testing.T) {
	// Short at 100: stop above at 105 (risk 5), target below at 90 (reward 10).
	c := Validate(model.SideShort, 100, 105, 90, 2.0)
	if !c.Valid {
		t.Fatalf("short with 2:1 reward should pass: %+v", c)
	}
	if math.Abs(c.Risk-5) > 1e-9 || math.Abs(c.Reward-10) > 1e-9 {
		t.Errorf("risk/reward: got %f/%f, want 5/10", c.Risk, c.Reward)
	}
}

func TestValidate_ZeroRiskRejected(t *testing.T) {
	c := Validate(model.SideLong, 100, 100, 110, 2.0)
	if c.Valid {
		t.Error("stop equal to entry must be rejected, never divided")
	}
	if c.Reason == "" {
		t.Error("rejection should carry a reason")
	}
}

func TestValidate_WrongSideStop(t *testing.T) {
	// Long with the stop above entry is nonsense.
	if c := Validate(model.SideLong, 100, 101, 110, 2.0); c.Valid {
		t.Error("long stop above entry must be rejected")
	}
	// Short with the target above entry is nonsense.
	if c := Validate(model.SideShort, 100, 105, 101, 2.0); c.Valid {
		t.Error("short target above entry must be rejected")
	}
}
