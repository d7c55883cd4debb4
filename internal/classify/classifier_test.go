package classify

import (
	"testing"

	"github.com/jmartell/docintel/constants"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		name     string
		filename string
		text     string
		wantType constants.DocumentType
	}{
		{
			name:     "proof of residence by filename and text",
			filename: "proof_of_residence_jan.pdf",
			text:     "City Water Co. Utility bill. Service address: 12 Oak St. Amount due: $40.",
			wantType: constants.ProofOfResidence,
		},
		{
			name:     "driver license front",
			filename: "dl_front.jpg",
			text:     "DRIVER LICENSE  DOB 01/02/1990  CLASS C  EXP 2028",
			wantType: constants.DriverLicenseFront,
		},
		{
			name:     "driver license back by text only",
			filename: "scan_0042.jpg",
			text:     "ORGAN DONOR  RESTRICTIONS: NONE  ENDORSEMENT: NONE",
			wantType: constants.DriverLicenseBack,
		},
		{
			name:     "pay stub",
			filename: "paystub_march.pdf",
			text:     "Pay period 03/01 - 03/15. Gross income 4,200.00. Net income 3,100.00.",
			wantType: constants.ProofOfIncome,
		},
		{
			name:     "odometer photo",
			filename: "odometer.jpg",
			text:     "68263 mi",
			wantType: constants.Odometer,
		},
		{
			name:     "insurance card",
			filename: "policy_card.png",
			text:     "Policy number ABC-123. Premium $80/mo. Effective date 2026-01-01.",
			wantType: constants.Insurance,
		},
		{
			name:     "no signal falls back to generic",
			filename: "scan1.jpg",
			text:     "lorem ipsum dolor sit amet",
			wantType: constants.Generic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotConf := c.Classify(tt.filename, tt.text)
			if gotType != tt.wantType {
				t.Fatalf("Classify() type = %s, want %s (confidence %.2f)", gotType, tt.wantType, gotConf)
			}
			if gotConf < 0 || gotConf > 1 {
				t.Fatalf("confidence %.4f out of [0,1]", gotConf)
			}
			if tt.wantType == constants.Generic && gotConf != 0 {
				t.Fatalf("generic fallback must carry zero confidence, got %.4f", gotConf)
			}
			if tt.wantType != constants.Generic && gotConf == 0 {
				t.Fatalf("matched type %s must carry positive confidence", tt.wantType)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewDefault()
	filename := "registration_2026.pdf"
	text := "Vehicle registration. VIN 1HGBH41JXMN109186. Plate number 7ABC123."

	firstType, firstConf := c.Classify(filename, text)
	for i := 0; i < 50; i++ {
		gotType, gotConf := c.Classify(filename, text)
		if gotType != firstType || gotConf != firstConf {
			t.Fatalf("iteration %d: got (%s, %.4f), want (%s, %.4f)", i, gotType, gotConf, firstType, firstConf)
		}
	}
}

func TestClassifyTieBreaks(t *testing.T) {
	t.Run("filename signal beats text signal at equal score", func(t *testing.T) {
		c := New([]Rule{
			{constants.Insurance, "zz", ScopeFilename, 2},
			{constants.Registration, "zz", ScopeText, 2},
		})
		gotType, _ := c.Classify("zz.pdf", "zz")
		if gotType != constants.Insurance {
			t.Fatalf("got %s, want %s via filename tie-break", gotType, constants.Insurance)
		}
	})

	t.Run("priority order decides a full tie", func(t *testing.T) {
		c := New([]Rule{
			{constants.Insurance, "shared", ScopeText, 2},
			{constants.Registration, "shared", ScopeText, 2},
		})
		gotType, _ := c.Classify("scan.pdf", "shared term")
		if gotType != constants.Registration {
			t.Fatalf("got %s, want %s via priority tie-break", gotType, constants.Registration)
		}
	})
}

func TestClassifyFilenameNormalization(t *testing.T) {
	c := NewDefault()

	for _, filename := range []string{"DL_Front.jpg", "dl-front.jpg", "DL FRONT.jpg", "dlfront.jpg"} {
		gotType, _ := c.Classify(filename, "")
		if gotType != constants.DriverLicenseFront {
			t.Fatalf("Classify(%q) = %s, want %s", filename, gotType, constants.DriverLicenseFront)
		}
	}
}

func TestClassifyConfidenceFullWhenEverySignalMatches(t *testing.T) {
	c := New([]Rule{
		{constants.Odometer, "odometer", ScopeFilename, 3},
		{constants.Odometer, "odo", ScopeFilename, 2},
	})
	_, conf := c.Classify("odometer.jpg", "")
	if conf != 1 {
		t.Fatalf("confidence = %.4f, want exactly 1 when every rule matches", conf)
	}
}
