package registration

import "time"

// Expired is the read-time expiry predicate. The stored flag is only a cache:
// a fresh comparison against the wall clock always wins when it would flip the
// result to expired, so expiry is discovered lazily even if the sweep never ran.
func Expired(r *Registration, now time.Time) bool {
	if r.IsExpired {
		return true
	}
	return r.ExpireDate != nil && now.After(*r.ExpireDate)
}
