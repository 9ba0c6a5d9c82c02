package alerts

// onRecipientChanged schedules a view rebuild for a user whose notification
// set changed; the unread count in the view documents is derived from it.
// Wired in main to the trigger scheduler; nil until then.
var onRecipientChanged func(userID string)

func SetRebuildHook(fn func(userID string)) { onRecipientChanged = fn }

func fireRecipientChanged(userID string) {
	if onRecipientChanged != nil {
		onRecipientChanged(userID)
	}
}
