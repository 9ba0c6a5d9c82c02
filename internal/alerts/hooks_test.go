package alerts

import "testing"

func TestRecipientChangedHook(t *testing.T) {
	defer SetRebuildHook(nil)

	// Unwired hook is a no-op, not a panic.
	fireRecipientChanged("u-1")

	var got []string
	SetRebuildHook(func(userID string) { got = append(got, userID) })

	fireRecipientChanged("u-1")
	fireRecipientChanged("u-2")

	if len(got) != 2 || got[0] != "u-1" || got[1] != "u-2" {
		t.Errorf("hook calls = %v, want [u-1 u-2]", got)
	}
}
