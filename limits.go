package main

import "time"

// Operational limits — named constants for values used across the session
// and room packages.
const (
	// maxLoginAttempts is the maximum number of register/login attempts
	// permitted per session within loginAttemptWindow.
	maxLoginAttempts = 5

	// loginAttemptWindow is the sliding window over which login/register
	// attempts are rate-limited.
	loginAttemptWindow = 60 * time.Second

	// msgRateWindow is the sliding window used to enforce a room's msg_rate.
	msgRateWindow = 5 * time.Second

	// sessionSweepInterval is how often the background sweep checks InRoom
	// sessions against their room's session_timeout.
	sessionSweepInterval = 30 * time.Second

	// expirySweepInterval is how often the background sweep clears expired
	// bans and mutes across every room loaded in memory.
	expirySweepInterval = 10 * time.Second

	// metricsLogInterval is how often aggregate server stats are logged.
	metricsLogInterval = 30 * time.Second
)
