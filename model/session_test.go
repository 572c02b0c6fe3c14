package model

import "testing"

func TestWizardStep_String(t *testing.T) {
	tests := []struct {
		step WizardStep
		want string
	}{
		{StepSelectJournal, "select_journal"},
		{StepSelectServiceType, "select_service_type"},
		{StepUploadAndDescribe, "upload_and_describe"},
		{StepCoAuthors, "co_authors"},
		{StepReviewAndConfirm, "review_and_confirm"},
		{WizardStep(0), "unknown"},
		{WizardStep(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("WizardStep(%d).String() = %q, want %q", tt.step, got, tt.want)
		}
	}
}

func TestWizardStep_Valid(t *testing.T) {
	if WizardStep(0).Valid() {
		t.Error("step 0 should be invalid")
	}
	if !FirstStep.Valid() || !LastStep.Valid() {
		t.Error("bounds should be valid steps")
	}
	if (LastStep + 1).Valid() {
		t.Error("step past the last should be invalid")
	}
}

func TestAddOnSet_Clone(t *testing.T) {
	orig := AddOnSet{AddOnFastTrack: true}
	clone := orig.Clone()
	clone[AddOnFastTrack] = false
	if !orig[AddOnFastTrack] {
		t.Error("mutating the clone must not affect the original")
	}

	var nilSet AddOnSet
	if nilSet.Clone() != nil {
		t.Error("cloning a nil set should return nil")
	}
}
