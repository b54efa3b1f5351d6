package assettype

import "testing"

func TestAssetType_ZeroValueIsInactive(t *testing.T) {
	var a AssetType
	if a.Active {
		t.Fatalf("expected zero value to be inactive")
	}
	if a.Code != "" {
		t.Fatalf("expected zero value code to be empty")
	}
}
