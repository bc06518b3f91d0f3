package natsadapter

import "testing"

func TestParcelCreatedSubject(t *testing.T) {
	id := int64(42)
	if got := ParcelCreatedSubject(&id); got != "parcels.created.42" {
		t.Errorf("got %q", got)
	}
	if got := ParcelCreatedSubject(nil); got != "parcels.created.anonymous" {
		t.Errorf("got %q", got)
	}
}
