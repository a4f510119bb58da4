// Package mail sends email. SMTP delivers for real; Log only records what
// would have been sent and is used when no SMTP host is configured.
package mail
