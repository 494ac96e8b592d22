// Package reminder implements the timed scan that drops a system chat
// message into activities starting in about three hours.
//
// The scan polls every 10 minutes and qualifies an activity when its start
// lies strictly between 170 and 190 minutes away. The 20-minute tolerance
// exists because a 10-minute poll cannot land exactly on the 180-minute
// mark; the notified3hBefore flag keeps the message at-most-once across
// the one or two polls that fall inside the window.
package reminder
