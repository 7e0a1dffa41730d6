package services

import (
	"fmt"
	"time"
)

// Caller-facing prompt text. Every turn, including every failure mode,
// resolves to one of these; a raw error string must never reach the
// telephony channel.

const (
	promptGreeting = "Thanks for calling. I can help you book an appointment. May I have your name, please?"

	promptAskNameRetry    = "Sorry, I didn't catch your name. Could you tell me your name again?"
	promptAskNameFallback = "I'm having trouble understanding. Please say just your first and last name, for example, John Smith."
	promptAskNameAgain    = "My apologies. What is your name?"

	promptAskPhone         = "Thanks. What phone number should we use for your appointment?"
	promptAskPhoneRetry    = "Sorry, I didn't get that number. Could you repeat your phone number?"
	promptAskPhoneFallback = "Let's try it differently. Please say your phone number one digit at a time, including the area code."

	promptAskTime         = "When would you like to come in?"
	promptAskTimeRetry    = "Sorry, I didn't catch that. What day and time would work for you?"
	promptAskTimeFallback = "Let's try once more. Please say a day and a time, for example, Tuesday at 2 PM."

	promptAskDifferentTime = "No problem. What other day and time would work for you?"

	promptConfirmRetry = "Sorry, I didn't catch that. Should I book it? Please say yes or no."

	promptDuplicateSlot = "It looks like you already have an appointment at that time. Would a different time work for you?"

	promptBookingFailed = "I'm sorry, I wasn't able to complete your booking just now. Please call us back in a little while."

	promptHandoff = "I'm sorry, I'm still having trouble understanding. Please hold while I transfer you to our front desk."
)

func promptConfirmName(name string) string {
	return fmt.Sprintf("I heard %s. Is that right?", name)
}

func promptConfirmNameRetry(name string) string {
	return fmt.Sprintf("Sorry, I need a yes or no. Is your name %s?", name)
}

func promptAskTimeUsingCallerID() string {
	return "Perfect, I'll use the number you're calling from. When would you like to come in?"
}

func promptConfirmBooking(name, phone string, startsAt time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"I have you down for %s on %s, and we'll reach you at %s. Shall I book it?",
		name, spokenTime(startsAt, loc), phone,
	)
}

func promptBooked(startsAt time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"You're all set for %s. We'll see you then. Goodbye!",
		spokenTime(startsAt, loc),
	)
}

func promptOutsideBusinessHours(openHour, closeHour int) string {
	return fmt.Sprintf(
		"I'm sorry, we take appointments between %s and %s. Could you pick a time during those hours?",
		spokenHour(openHour), spokenHour(closeHour),
	)
}

func promptPastTime() string {
	return "That time has already passed. Could you pick a time later on?"
}

func spokenTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Monday, January 2 at 3:04 PM")
}

func spokenHour(hour int) string {
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("3 PM")
}
